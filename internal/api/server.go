package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"traffic-worker-go/internal/api/handlers"
	"traffic-worker-go/internal/config"
	"traffic-worker-go/internal/services/pipeline"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	workerHandler *handlers.WorkerHandler
	healthHandler *handlers.HealthHandler
	countsHandler *handlers.CountsHandler
	systemHandler *handlers.SystemHandler
}

// NewServer builds the status API over the pipeline store. link may be nil
// when the serial link is disabled.
func NewServer(cfg *config.Config, store *pipeline.Store, link handlers.LinkStatus) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		workerHandler: handlers.NewWorkerHandler(cfg),
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, store, link),
		countsHandler: handlers.NewCountsHandler(store),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID, store),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

// Start blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting traffic worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping traffic worker API")
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
