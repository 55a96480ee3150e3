// Package lanes maps detection centroids onto the four directional lanes.
//
// Every strategy is prepared once per frame into an Assigner; the aggregator
// and the telemetry sender never know which strategy is active.
package lanes

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"traffic-worker-go/internal/models"
)

const (
	StrategyQuadrant  = "quadrant"
	StrategyPolygon   = "polygon"
	StrategyColorMask = "colormask"
	StrategyCorners   = "corners"
)

var (
	// ErrNoMarkers is returned when a frame yields no fiducial markers at all
	ErrNoMarkers = errors.New("no markers detected in frame")
	// ErrMaskUnavailable is returned when the colour strategy has no reference mask
	ErrMaskUnavailable = errors.New("lane mask unavailable")
	// ErrEmptyFrame is returned for a frame with zero width or height
	ErrEmptyFrame = errors.New("frame has no pixels")
)

// Assigner maps a centroid to a lane for one frame
type Assigner interface {
	// Assign returns the lane containing c, or models.LaneUnassigned.
	// c is clamped to the frame bounds before lookup.
	Assign(c models.Centroid) models.Lane
	// Regions returns the lane geometry used for this frame, for overlays
	Regions() []Region
}

// Strategy builds a frame-scoped Assigner
type Strategy interface {
	Name() string
	Prepare(in FrameInput) (Assigner, error)
}

// MarkerSource supplies fiducial markers for the current frame.
// Only the polygon strategy consults it.
type MarkerSource interface {
	Markers() ([]Marker, error)
}

// MarkerSourceFunc adapts a function to MarkerSource
type MarkerSourceFunc func() ([]Marker, error)

func (f MarkerSourceFunc) Markers() ([]Marker, error) { return f() }

// FrameInput is what a strategy may look at when preparing a frame
type FrameInput struct {
	Bounds  image.Rectangle
	Markers MarkerSource
}

// Region is the drawable geometry of one lane
type Region struct {
	Lane   models.Lane
	Points []image.Point
}

// StrategyConfig selects and parameterises a strategy
type StrategyConfig struct {
	Name string

	// polygon
	LaneMarkers map[models.Lane][]int

	// colormask
	Mask       image.Image
	LaneColors [models.NumLanes]color.RGBA
	Tolerance  float64
}

// NewStrategy returns the strategy named by cfg.Name
func NewStrategy(cfg StrategyConfig) (Strategy, error) {
	switch cfg.Name {
	case StrategyQuadrant:
		return NewQuadrantStrategy(), nil
	case StrategyCorners:
		return NewCornerStrategy(), nil
	case StrategyPolygon:
		markers := cfg.LaneMarkers
		if len(markers) == 0 {
			markers = DefaultLaneMarkers()
		}
		return NewPolygonStrategy(markers), nil
	case StrategyColorMask:
		return NewColorMaskStrategy(cfg.Mask, cfg.LaneColors, cfg.Tolerance)
	default:
		return nil, fmt.Errorf("unknown lane strategy %q", cfg.Name)
	}
}

func checkBounds(b image.Rectangle) error {
	if b.Empty() {
		return ErrEmptyFrame
	}
	return nil
}

// clamp pins c to the pixel grid of b
func clamp(c models.Centroid, b image.Rectangle) models.Centroid {
	if c.X < b.Min.X {
		c.X = b.Min.X
	}
	if c.X > b.Max.X-1 {
		c.X = b.Max.X - 1
	}
	if c.Y < b.Min.Y {
		c.Y = b.Min.Y
	}
	if c.Y > b.Max.Y-1 {
		c.Y = b.Max.Y - 1
	}
	return c
}

func rectPoints(r image.Rectangle) []image.Point {
	return []image.Point{r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y}}
}
