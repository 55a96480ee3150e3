package lanes

import (
	"image"

	"traffic-worker-go/internal/models"
)

// CornerStrategy counts only the four corner regions of the frame, each a
// quarter of the frame wide and tall. North is top-right, South bottom-left,
// East bottom-right and West top-left. Bounds are inclusive.
type CornerStrategy struct{}

func NewCornerStrategy() *CornerStrategy { return &CornerStrategy{} }

func (s *CornerStrategy) Name() string { return StrategyCorners }

func (s *CornerStrategy) Prepare(in FrameInput) (Assigner, error) {
	if err := checkBounds(in.Bounds); err != nil {
		return nil, err
	}
	b := in.Bounds
	w, h := b.Dx(), b.Dy()
	qw, qh := w/4, h/4
	x0, y0 := b.Min.X, b.Min.Y

	a := cornerAssigner{bounds: b}
	a.rects[models.LaneNorth] = image.Rect(x0+w-qw, y0, x0+w, y0+qh)
	a.rects[models.LaneSouth] = image.Rect(x0, y0+h-qh, x0+qw, y0+h)
	a.rects[models.LaneEast] = image.Rect(x0+w-qw, y0+h-qh, x0+w, y0+h)
	a.rects[models.LaneWest] = image.Rect(x0, y0, x0+qw, y0+qh)
	return a, nil
}

type cornerAssigner struct {
	bounds image.Rectangle
	rects  [models.NumLanes]image.Rectangle
}

func (a cornerAssigner) Assign(c models.Centroid) models.Lane {
	c = clamp(c, a.bounds)
	for _, l := range models.Lanes {
		r := a.rects[l]
		if c.X >= r.Min.X && c.X <= r.Max.X && c.Y >= r.Min.Y && c.Y <= r.Max.Y {
			return l
		}
	}
	return models.LaneUnassigned
}

func (a cornerAssigner) Regions() []Region {
	out := make([]Region, 0, models.NumLanes)
	for _, l := range models.Lanes {
		out = append(out, Region{Lane: l, Points: rectPoints(a.rects[l])})
	}
	return out
}
