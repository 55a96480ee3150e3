package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"traffic-worker-go/internal/config"
)

type WorkerHandler struct {
	cfg *config.Config
}

func NewWorkerHandler(cfg *config.Config) *WorkerHandler {
	return &WorkerHandler{cfg: cfg}
}

type WorkerInfoResponse struct {
	WorkerID     string       `json:"worker_id" example:"traffic-1"`
	Version      string       `json:"version" example:"1.0.0"`
	Environment  string       `json:"environment" example:"development"`
	Port         int          `json:"port" example:"8000"`
	StartTime    time.Time    `json:"start_time"`
	Capabilities []string     `json:"capabilities"`
	Config       WorkerConfig `json:"config"`
}

type WorkerConfig struct {
	FrameSource    string        `json:"frame_source" example:"camera:0"`
	FrameInterval  time.Duration `json:"frame_interval"`
	ModelFormat    string        `json:"model_format" example:"darknet"`
	AllowedClasses []string      `json:"allowed_classes"`
	LaneStrategy   string        `json:"lane_strategy" example:"quadrant"`
	WireFormat     string        `json:"wire_format" example:"checksum"`
	SerialEnabled  bool          `json:"serial_enabled"`
	SerialPort     string        `json:"serial_port" example:"/dev/ttyUSB0"`
	SerialBaud     int           `json:"serial_baud" example:"115200"`
	NatsEnabled    bool          `json:"nats_enabled"`
	CountsSubject  string        `json:"counts_subject" example:"traffic.lane_counts"`
}

var startTime = time.Now()

// GetInfo godoc
// @Summary Get worker information
// @Description Get the worker identity and the active counting configuration
// @Tags worker
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *WorkerHandler) GetInfo(c *gin.Context) {
	source := "camera"
	switch {
	case h.cfg.ImagePath != "":
		source = "image:" + h.cfg.ImagePath
	case h.cfg.CameraURL != "":
		source = "stream:" + h.cfg.CameraURL
	}

	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID:    h.cfg.WorkerID,
		Version:     h.cfg.Version,
		Environment: h.cfg.Environment,
		Port:        h.cfg.Port,
		StartTime:   startTime,
		Capabilities: []string{
			"vehicle_detection",
			"lane_assignment",
			"lane_counting",
			"serial_telemetry",
		},
		Config: WorkerConfig{
			FrameSource:    source,
			FrameInterval:  h.cfg.FrameInterval,
			ModelFormat:    h.cfg.ModelFormat,
			AllowedClasses: h.cfg.AllowedClasses,
			LaneStrategy:   h.cfg.LaneStrategy,
			WireFormat:     h.cfg.WireFormat,
			SerialEnabled:  h.cfg.SerialEnabled,
			SerialPort:     h.cfg.SerialPort,
			SerialBaud:     h.cfg.SerialBaud,
			NatsEnabled:    h.cfg.NatsEnabled,
			CountsSubject:  h.cfg.CountsSubject,
		},
	})
}
