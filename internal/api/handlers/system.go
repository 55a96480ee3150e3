package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"traffic-worker-go/internal/services/pipeline"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID string
	store    *pipeline.Store
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, store *pipeline.Store) *SystemHandler {
	return &SystemHandler{
		WorkerID: workerID,
		store:    store,
	}
}

// @Summary Get system stats
// @Description Get process statistics and pipeline totals
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":  h.WorkerID,
		"uptime_s":   int64(time.Since(startTime).Seconds()),
		"memory_mb":  m.Alloc / 1024 / 1024,
		"cpu_cores":  runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}
	if h.store != nil {
		stats["pipeline"] = h.store.Stats()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
