package vision

import (
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"traffic-worker-go/internal/helpers"
	"traffic-worker-go/internal/models"
)

const (
	ModelDarknet = "darknet"
	ModelYOLOv8  = "yolov8"
)

// DetectorConfig selects the network files and thresholds
type DetectorConfig struct {
	WeightsPath   string
	ConfigPath    string
	Format        string
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
	ClassNames    []string
}

// Detector runs a YOLO network through OpenCV DNN
type Detector struct {
	net      gocv.Net
	outNames []string
	cfg      DetectorConfig
	logger   zerolog.Logger
}

// NewDetector loads the network. ConfigPath may be empty for ONNX models.
func NewDetector(cfg DetectorConfig, logger zerolog.Logger) (*Detector, error) {
	if _, err := os.Stat(cfg.WeightsPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return nil, fmt.Errorf("model config not found: %w", err)
		}
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 416
	}

	net := gocv.ReadNet(cfg.WeightsPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.WeightsPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	d := &Detector{
		net:      net,
		outNames: outputLayers(net),
		cfg:      cfg,
		logger:   logger,
	}
	logger.Info().
		Str("weights", cfg.WeightsPath).
		Str("format", cfg.Format).
		Int("input_size", cfg.InputSize).
		Strs("output_layers", d.outNames).
		Int("classes", len(cfg.ClassNames)).
		Msg("Detection network initialized")
	return d, nil
}

func outputLayers(net gocv.Net) []string {
	layerNames := net.GetLayerNames()
	var out []string
	for _, i := range net.GetUnconnectedOutLayers() {
		if i-1 >= 0 && i-1 < len(layerNames) {
			out = append(out, layerNames[i-1])
		}
	}
	return out
}

// Detect returns the boxes surviving confidence and NMS filtering, in frame
// pixel coordinates.
func (d *Detector) Detect(frame *Frame) ([]models.Detection, error) {
	if frame.Mat.Empty() {
		return nil, ErrFrameUnavailable
	}
	w, h := frame.Mat.Cols(), frame.Mat.Rows()
	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)

	blob := gocv.BlobFromImage(frame.Mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outNames)
	defer func() {
		for _, o := range outputs {
			o.Close()
		}
	}()

	var (
		boxes  []image.Rectangle
		scores []float32
		ids    []int
	)
	collect := func(r image.Rectangle, score float32, id int) {
		boxes = append(boxes, r)
		scores = append(scores, score)
		ids = append(ids, id)
	}

	switch d.cfg.Format {
	case ModelYOLOv8:
		if len(outputs) == 0 {
			return nil, fmt.Errorf("network produced no output")
		}
		// ultralytics exports [1, 4+classes, anchors]
		transposed := gocv.NewMat()
		defer transposed.Close()
		if err := gocv.TransposeND(outputs[0], []int{0, 2, 1}, &transposed); err != nil {
			return nil, fmt.Errorf("transpose output: %w", err)
		}
		sx := float32(w) / float32(d.cfg.InputSize)
		sy := float32(h) / float32(d.cfg.InputSize)
		rows := transposed.Reshape(1, transposed.Size()[1])
		defer rows.Close()
		d.scanRows(rows, 4, func(cx, cy, bw, bh float32) image.Rectangle {
			return centerRect(cx*sx, cy*sy, bw*sx, bh*sy)
		}, collect)
	default:
		for _, out := range outputs {
			d.scanRows(out, 5, func(cx, cy, bw, bh float32) image.Rectangle {
				return centerRect(cx*float32(w), cy*float32(h), bw*float32(w), bh*float32(h))
			}, collect)
		}
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, d.cfg.ConfThreshold, d.cfg.NMSThreshold)
	dets := make([]models.Detection, 0, len(indices))
	for _, i := range indices {
		r := boxes[i]
		dets = append(dets, models.Detection{
			X:         r.Min.X,
			Y:         r.Min.Y,
			Width:     r.Dx(),
			Height:    r.Dy(),
			Score:     scores[i],
			ClassID:   ids[i],
			ClassName: helpers.ClassName(d.cfg.ClassNames, ids[i]),
		})
	}

	d.logger.Debug().
		Int64("frame_id", frame.ID).
		Int("candidates", len(boxes)).
		Int("detections", len(dets)).
		Msg("Detection complete")
	return dets, nil
}

// scanRows walks one output matrix whose rows are cx, cy, w, h, then class
// scores starting at scoreCol.
func (d *Detector) scanRows(out gocv.Mat, scoreCol int, toRect func(cx, cy, w, h float32) image.Rectangle, collect func(image.Rectangle, float32, int)) {
	cols := out.Cols()
	if cols <= scoreCol {
		return
	}
	for i := 0; i < out.Rows(); i++ {
		func() {
			row := out.RowRange(i, i+1)
			defer row.Close()
			classScores := row.ColRange(scoreCol, cols)
			defer classScores.Close()

			_, score, _, loc := gocv.MinMaxLoc(classScores)
			if score <= d.cfg.ConfThreshold {
				return
			}
			r := toRect(row.GetFloatAt(0, 0), row.GetFloatAt(0, 1), row.GetFloatAt(0, 2), row.GetFloatAt(0, 3))
			collect(r, score, loc.X)
		}()
	}
}

func centerRect(cx, cy, w, h float32) image.Rectangle {
	x := int(cx - w/2)
	y := int(cy - h/2)
	return image.Rect(x, y, x+int(w), y+int(h))
}

func (d *Detector) Close() error {
	return d.net.Close()
}
