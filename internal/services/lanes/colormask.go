package lanes

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"

	"traffic-worker-go/internal/models"
)

// DefaultColorTolerance is the largest RGB distance still treated as a match
const DefaultColorTolerance = 20.0

// DefaultLaneColors are the signature colours painted on the reference mask
func DefaultLaneColors() [models.NumLanes]color.RGBA {
	return [models.NumLanes]color.RGBA{
		models.LaneNorth: {R: 0, G: 0, B: 255, A: 255},
		models.LaneSouth: {R: 0, G: 255, B: 0, A: 255},
		models.LaneEast:  {R: 255, G: 0, B: 0, A: 255},
		models.LaneWest:  {R: 0, G: 255, B: 255, A: 255},
	}
}

// ColorMaskStrategy looks up the mask pixel under each centroid and picks the
// lane whose reference colour is nearest, provided it is within tolerance.
type ColorMaskStrategy struct {
	mask      image.Image
	refs      [models.NumLanes][]float64
	tolerance float64
}

func NewColorMaskStrategy(mask image.Image, colors [models.NumLanes]color.RGBA, tolerance float64) (*ColorMaskStrategy, error) {
	if mask == nil || mask.Bounds().Empty() {
		return nil, ErrMaskUnavailable
	}
	if tolerance <= 0 || math.IsNaN(tolerance) {
		return nil, fmt.Errorf("colour tolerance must be positive, got %v", tolerance)
	}
	s := &ColorMaskStrategy{mask: mask, tolerance: tolerance}
	for _, l := range models.Lanes {
		c := colors[l]
		s.refs[l] = []float64{float64(c.R), float64(c.G), float64(c.B)}
	}
	return s, nil
}

func (s *ColorMaskStrategy) Name() string { return StrategyColorMask }

func (s *ColorMaskStrategy) Prepare(in FrameInput) (Assigner, error) {
	if err := checkBounds(in.Bounds); err != nil {
		return nil, err
	}
	return &colorMaskAssigner{strategy: s, bounds: in.Bounds}, nil
}

// Match returns the best lane for a mask colour, or LaneUnassigned.
// Colours are compared unpremultiplied; a fully transparent pixel matches
// nothing. Ties go to the earlier lane in canonical order.
func (s *ColorMaskStrategy) Match(c color.Color) models.Lane {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return models.LaneUnassigned
	}
	px := []float64{float64(n.R), float64(n.G), float64(n.B)}

	best := models.LaneUnassigned
	bestDist := math.Inf(1)
	for _, l := range models.Lanes {
		d := floats.Distance(px, s.refs[l], 2)
		if d <= s.tolerance && d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

type colorMaskAssigner struct {
	strategy *ColorMaskStrategy
	bounds   image.Rectangle
}

// Assign samples the mask with nearest-neighbour scaling when the mask and
// frame sizes differ.
func (a *colorMaskAssigner) Assign(c models.Centroid) models.Lane {
	c = clamp(c, a.bounds)
	mb := a.strategy.mask.Bounds()
	fx, fy := c.X-a.bounds.Min.X, c.Y-a.bounds.Min.Y
	mx := mb.Min.X + fx*mb.Dx()/a.bounds.Dx()
	my := mb.Min.Y + fy*mb.Dy()/a.bounds.Dy()
	return a.strategy.Match(a.strategy.mask.At(mx, my))
}

// Regions is empty: mask lanes have no polygonal outline
func (a *colorMaskAssigner) Regions() []Region { return nil }
