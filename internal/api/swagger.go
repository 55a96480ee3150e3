package api

import (
	"net/http"

	_ "traffic-worker-go/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Traffic Worker API",
			"version":     s.config.Version,
			"description": "Lane counting worker: vehicle detection, lane assignment and serial telemetry",
			"swagger_ui":  "/docs/index.html",
			"endpoints": gin.H{
				"worker_info":     "/",
				"health":          "/health",
				"latest_counts":   "/counts/latest",
				"latest_snapshot": "/counts/snapshot",
				"system":          "/system/stats",
			},
			"worker_id": s.config.WorkerID,
			"port":      s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
