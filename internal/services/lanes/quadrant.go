package lanes

import (
	"image"

	"traffic-worker-go/internal/models"
)

// QuadrantStrategy splits the frame at its horizontal and vertical midlines:
//
//	West  | East
//	------+------
//	North | South
type QuadrantStrategy struct{}

func NewQuadrantStrategy() *QuadrantStrategy { return &QuadrantStrategy{} }

func (s *QuadrantStrategy) Name() string { return StrategyQuadrant }

func (s *QuadrantStrategy) Prepare(in FrameInput) (Assigner, error) {
	if err := checkBounds(in.Bounds); err != nil {
		return nil, err
	}
	return quadrantAssigner{bounds: in.Bounds}, nil
}

type quadrantAssigner struct {
	bounds image.Rectangle
}

func (a quadrantAssigner) mid() image.Point {
	return image.Pt(a.bounds.Min.X+a.bounds.Dx()/2, a.bounds.Min.Y+a.bounds.Dy()/2)
}

func (a quadrantAssigner) Assign(c models.Centroid) models.Lane {
	c = clamp(c, a.bounds)
	mid := a.mid()
	if c.X < mid.X {
		if c.Y < mid.Y {
			return models.LaneWest
		}
		return models.LaneNorth
	}
	if c.Y < mid.Y {
		return models.LaneEast
	}
	return models.LaneSouth
}

func (a quadrantAssigner) Regions() []Region {
	b, mid := a.bounds, a.mid()
	return []Region{
		{Lane: models.LaneNorth, Points: rectPoints(image.Rect(b.Min.X, mid.Y, mid.X, b.Max.Y))},
		{Lane: models.LaneSouth, Points: rectPoints(image.Rect(mid.X, mid.Y, b.Max.X, b.Max.Y))},
		{Lane: models.LaneEast, Points: rectPoints(image.Rect(mid.X, b.Min.Y, b.Max.X, mid.Y))},
		{Lane: models.LaneWest, Points: rectPoints(image.Rect(b.Min.X, b.Min.Y, mid.X, mid.Y))},
	}
}
