// Package vision adapts gocv to the pipeline: frame sources, the YOLO
// detector, the ArUco marker detector, mask loading and the debug overlay.
package vision

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one BGR image owned by the pipeline until Close
type Frame struct {
	Mat       gocv.Mat
	ID        int64
	Timestamp time.Time
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Mat.Cols(), f.Mat.Rows())
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

func (f *Frame) FrameID() int64 { return f.ID }

func (f *Frame) CapturedAt() time.Time { return f.Timestamp }
