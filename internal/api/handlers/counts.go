package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traffic-worker-go/internal/helpers"
	"traffic-worker-go/internal/logging"
	"traffic-worker-go/internal/services/pipeline"
)

type ErrorResponse struct {
	Error string `json:"error" example:"no frame processed yet"`
}

type CountsHandler struct {
	store *pipeline.Store
}

func NewCountsHandler(store *pipeline.Store) *CountsHandler {
	return &CountsHandler{store: store}
}

// GetLatest godoc
// @Summary Latest lane counts
// @Description Get the per-lane counts of the most recently processed frame
// @Tags counts
// @Produce json
// @Success 200 {object} models.LaneCountsPayload
// @Failure 404 {object} ErrorResponse
// @Router /counts/latest [get]
func (h *CountsHandler) GetLatest(c *gin.Context) {
	latest, ok := h.store.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no frame processed yet"})
		return
	}
	logging.WithFrame(c, latest.RunID, latest.Frame.FrameID)
	logging.Debug(c).Int("total", latest.Total).Msg("Serving latest counts")
	c.JSON(http.StatusOK, latest)
}

// GetSnapshot godoc
// @Summary Latest overlay snapshot
// @Description Get the last frame with lane regions, boxes and centroids drawn on it
// @Tags counts
// @Produce image/jpeg
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /counts/snapshot [get]
func (h *CountsHandler) GetSnapshot(c *gin.Context) {
	snap, ok := h.store.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no snapshot available"})
		return
	}

	if latest, ok := h.store.Latest(); ok {
		logging.WithFrame(c, latest.RunID, latest.Frame.FrameID)
	}
	contentType := "image/jpeg"
	if !helpers.IsJPEGData(snap) {
		logging.Warn(c).Int("bytes", len(snap)).Msg("Snapshot is not JPEG encoded")
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, contentType, snap)
}
