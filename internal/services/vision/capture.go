package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// ErrFrameUnavailable is returned when a source cannot produce a usable frame
var ErrFrameUnavailable = errors.New("frame unavailable")

const readRetryDelay = 100 * time.Millisecond

// ImageSource yields a single still image, then io.EOF
type ImageSource struct {
	path string
	done bool
}

func NewImageSource(path string) *ImageSource {
	return &ImageSource{path: path}
}

func (s *ImageSource) Next(ctx context.Context) (*Frame, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true

	img := gocv.IMRead(s.path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%w: cannot read image %s", ErrFrameUnavailable, s.path)
	}
	return &Frame{Mat: img, ID: 1, Timestamp: time.Now()}, nil
}

func (s *ImageSource) Close() error { return nil }

// CaptureConfig describes a live camera
type CaptureConfig struct {
	// URL takes precedence over Device when set
	URL           string
	Device        int
	Width         int
	Height        int
	MaxReadErrors int
}

// CameraSource reads frames from a webcam or stream through VideoCapture
type CameraSource struct {
	cap     *gocv.VideoCapture
	cfg     CaptureConfig
	frameID int64
	logger  zerolog.Logger
}

// OpenCamera opens the device and requests the configured resolution
func OpenCamera(cfg CaptureConfig, logger zerolog.Logger) (*CameraSource, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)
	if cfg.URL != "" {
		cap, err = gocv.OpenVideoCapture(cfg.URL)
	} else {
		cap, err = gocv.OpenVideoCapture(cfg.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open camera: %v", ErrFrameUnavailable, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: camera is not opened", ErrFrameUnavailable)
	}

	cap.Set(gocv.VideoCaptureBufferSize, 1) // Minimal buffer
	if cfg.Width > 0 && cfg.Height > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.MaxReadErrors <= 0 {
		cfg.MaxReadErrors = 10
	}

	logger.Info().
		Str("url", cfg.URL).
		Int("device", cfg.Device).
		Float64("actual_width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Float64("actual_fps", cap.Get(gocv.VideoCaptureFPS)).
		Msg("VideoCapture opened")

	return &CameraSource{cap: cap, cfg: cfg, logger: logger}, nil
}

// Next blocks until a frame is read, the context ends, or too many
// consecutive reads fail.
func (s *CameraSource) Next(ctx context.Context) (*Frame, error) {
	img := gocv.NewMat()
	consecutiveErrors := 0

	for {
		if err := ctx.Err(); err != nil {
			img.Close()
			return nil, err
		}

		if s.cap.Read(&img) && !img.Empty() {
			s.frameID++
			return &Frame{Mat: img, ID: s.frameID, Timestamp: time.Now()}, nil
		}

		consecutiveErrors++
		s.logger.Warn().
			Int("consecutive_errors", consecutiveErrors).
			Msg("Failed to read frame from VideoCapture")

		if consecutiveErrors >= s.cfg.MaxReadErrors {
			img.Close()
			return nil, fmt.Errorf("%w: %d consecutive read errors", ErrFrameUnavailable, consecutiveErrors)
		}

		select {
		case <-ctx.Done():
			img.Close()
			return nil, ctx.Err()
		case <-time.After(readRetryDelay):
		}
	}
}

func (s *CameraSource) Close() error {
	return s.cap.Close()
}
