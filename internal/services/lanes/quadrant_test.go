package lanes

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-worker-go/internal/models"
)

func prepare(t *testing.T, s Strategy, in FrameInput) Assigner {
	t.Helper()
	a, err := s.Prepare(in)
	require.NoError(t, err)
	return a
}

func TestQuadrantAssignsByMidlines(t *testing.T) {
	for _, size := range []image.Point{{640, 480}, {1280, 720}, {101, 37}} {
		w, h := size.X, size.Y
		a := prepare(t, NewQuadrantStrategy(), FrameInput{Bounds: image.Rect(0, 0, w, h)})

		assert.Equal(t, models.LaneWest, a.Assign(models.Centroid{X: w / 4, Y: h / 4}), size)
		assert.Equal(t, models.LaneSouth, a.Assign(models.Centroid{X: 3 * w / 4, Y: 3 * h / 4}), size)
		assert.Equal(t, models.LaneNorth, a.Assign(models.Centroid{X: w / 4, Y: 3 * h / 4}), size)
		assert.Equal(t, models.LaneEast, a.Assign(models.Centroid{X: 3 * w / 4, Y: h / 4}), size)
	}
}

func TestQuadrantMidlineBelongsToRightAndBottom(t *testing.T) {
	a := prepare(t, NewQuadrantStrategy(), FrameInput{Bounds: image.Rect(0, 0, 640, 480)})

	assert.Equal(t, models.LaneSouth, a.Assign(models.Centroid{X: 320, Y: 240}))
	assert.Equal(t, models.LaneWest, a.Assign(models.Centroid{X: 319, Y: 239}))
}

func TestQuadrantClampsOutOfFrameCentroids(t *testing.T) {
	a := prepare(t, NewQuadrantStrategy(), FrameInput{Bounds: image.Rect(0, 0, 640, 480)})

	assert.Equal(t, models.LaneNorth, a.Assign(models.Centroid{X: -50, Y: 1000}))
	assert.Equal(t, models.LaneEast, a.Assign(models.Centroid{X: 9000, Y: -3}))
}

func TestQuadrantRejectsEmptyFrame(t *testing.T) {
	_, err := NewQuadrantStrategy().Prepare(FrameInput{})
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestQuadrantRegionsCoverEveryLane(t *testing.T) {
	a := prepare(t, NewQuadrantStrategy(), FrameInput{Bounds: image.Rect(0, 0, 640, 480)})
	regions := a.Regions()
	require.Len(t, regions, models.NumLanes)
	for i, r := range regions {
		assert.Equal(t, models.Lanes[i], r.Lane)
		assert.Len(t, r.Points, 4)
	}
}

func TestNewStrategyByName(t *testing.T) {
	mask := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for _, name := range []string{StrategyQuadrant, StrategyCorners, StrategyPolygon, StrategyColorMask} {
		s, err := NewStrategy(StrategyConfig{Name: name, Mask: mask, LaneColors: DefaultLaneColors(), Tolerance: DefaultColorTolerance})
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}

	_, err := NewStrategy(StrategyConfig{Name: "hexagon"})
	assert.Error(t, err)
}
