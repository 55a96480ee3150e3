package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"traffic-worker-go/internal/models"
	"traffic-worker-go/internal/services/lanes"
)

var unassignedColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// Overlay draws lane geometry, boxes and centroids onto a copy of the frame
// and encodes it as JPEG. When Path is set the image is also written there.
type Overlay struct {
	Path    string
	Quality int
	Colors  [models.NumLanes]color.RGBA
}

func NewOverlay(path string) *Overlay {
	return &Overlay{Path: path, Quality: 90, Colors: lanes.DefaultLaneColors()}
}

func (o *Overlay) laneColor(l models.Lane) color.RGBA {
	if !l.Valid() {
		return unassignedColor
	}
	return o.Colors[l]
}

func (o *Overlay) Render(frame *Frame, assigner lanes.Assigner, dets []models.Detection, counts models.CountRecord) ([]byte, error) {
	mat := frame.Mat.Clone()
	defer mat.Close()

	for _, r := range assigner.Regions() {
		if len(r.Points) < 2 {
			continue
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{r.Points})
		gocv.Polylines(&mat, pv, true, o.laneColor(r.Lane), 2)
		pv.Close()
		drawLabel(&mat, r.Lane.String(), r.Points[0].X+4, r.Points[0].Y+20, o.laneColor(r.Lane), 0.6, 1)
	}

	for _, d := range dets {
		c := d.Centroid()
		col := o.laneColor(assigner.Assign(c))
		gocv.Rectangle(&mat, image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height), col, 2)
		gocv.Circle(&mat, image.Pt(c.X, c.Y), 4, col, -1)
		gocv.PutText(&mat, fmt.Sprintf("%s %.2f", d.ClassName, d.Score), image.Pt(d.X, d.Y-5), gocv.FontHersheySimplex, 0.5, col, 1)
	}

	drawLabel(&mat, counts.String(), 12, mat.Rows()-12, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 0.7, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, o.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())

	if o.Path != "" && !gocv.IMWrite(o.Path, mat) {
		return out, fmt.Errorf("write overlay to %s", o.Path)
	}
	return out, nil
}

// drawLabel draws text on a dark background box
func drawLabel(mat *gocv.Mat, text string, x, y int, textColor color.RGBA, fontScale float64, thickness int) {
	fontFace := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(text, fontFace, fontScale, thickness)

	padding := 6
	bgRect := image.Rect(x-padding, y-textSize.Y-padding, x+textSize.X+padding, y+padding)
	gocv.Rectangle(mat, bgRect, color.RGBA{A: 200}, -1)
	gocv.Rectangle(mat, bgRect, color.RGBA{R: 40, G: 40, B: 40, A: 255}, 1)

	gocv.PutText(mat, text, image.Pt(x+1, y+1), fontFace, fontScale, color.RGBA{A: 100}, thickness)
	gocv.PutText(mat, text, image.Pt(x, y), fontFace, fontScale, textColor, thickness)
}
