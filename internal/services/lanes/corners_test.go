package lanes

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"traffic-worker-go/internal/models"
)

func TestCornerRegions(t *testing.T) {
	a := prepare(t, NewCornerStrategy(), FrameInput{Bounds: image.Rect(0, 0, 640, 480)})

	tests := []struct {
		name string
		c    models.Centroid
		want models.Lane
	}{
		{"top right", models.Centroid{X: 600, Y: 50}, models.LaneNorth},
		{"bottom left", models.Centroid{X: 50, Y: 450}, models.LaneSouth},
		{"bottom right", models.Centroid{X: 600, Y: 450}, models.LaneEast},
		{"top left", models.Centroid{X: 50, Y: 50}, models.LaneWest},
		{"centre", models.Centroid{X: 320, Y: 240}, models.LaneUnassigned},
		{"top middle", models.Centroid{X: 320, Y: 10}, models.LaneUnassigned},
		{"inclusive edge", models.Centroid{X: 160, Y: 120}, models.LaneWest},
		{"just past edge", models.Centroid{X: 161, Y: 120}, models.LaneUnassigned},
		{"clamped", models.Centroid{X: 2000, Y: 2000}, models.LaneEast},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.Assign(tc.c))
		})
	}
}
