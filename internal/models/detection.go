package models

import (
	"time"
)

// Detection is a single object reported by the detector for one frame
type Detection struct {
	// Box in pixel coordinates; X, Y is the top-left corner
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Score     float32 `json:"score"`
	ClassID   int     `json:"class_id"`
	ClassName string  `json:"class_name"`
}

// Centroid returns the integer centre of the bounding box
func (d Detection) Centroid() Centroid {
	return Centroid{X: d.X + d.Width/2, Y: d.Y + d.Height/2}
}

// Centroid is the derived lookup point of a detection
type Centroid struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FrameMetadata contains frame-level information
type FrameMetadata struct {
	FrameID     int64     `json:"frame_id"`
	Timestamp   time.Time `json:"timestamp"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	AllDetCount int       `json:"all_detections_count"`
}

// LaneCountsPayload is the message published to NATS after each frame
type LaneCountsPayload struct {
	WorkerID   string        `json:"worker_id"`
	RunID      string        `json:"run_id"`
	Strategy   string        `json:"strategy"`
	Frame      FrameMetadata `json:"frame"`
	Counts     CountRecord   `json:"counts"`
	Total      int           `json:"total"`
	Unassigned int           `json:"unassigned"`
	Sent       bool          `json:"sent"`
	SendError  string        `json:"send_error,omitempty"`

	// SerialDisabled is set when no controller link is configured
	SerialDisabled bool `json:"serial_disabled,omitempty"`
}
