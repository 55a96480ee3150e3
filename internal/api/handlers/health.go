package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traffic-worker-go/internal/services/pipeline"
)

// LinkStatus reports whether the controller serial link is currently open
type LinkStatus func() bool

type HealthHandler struct {
	WorkerID string
	store    *pipeline.Store
	link     LinkStatus
}

func NewHealthHandler(workerID string, store *pipeline.Store, link LinkStatus) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, store: store, link: link}
}

type HealthResponse struct {
	Status          string `json:"status" example:"healthy"`
	WorkerID        string `json:"worker_id" example:"traffic-1"`
	RunID           string `json:"run_id,omitempty"`
	FramesProcessed uint64 `json:"frames_processed"`
	SerialConnected *bool  `json:"serial_connected,omitempty"`
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
	}
	if h.store != nil {
		st := h.store.Stats()
		resp.RunID = st.RunID
		resp.FramesProcessed = st.FramesProcessed
	}
	if h.link != nil {
		connected := h.link()
		resp.SerialConnected = &connected
	}
	c.JSON(http.StatusOK, resp)
}
