package vision

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"traffic-worker-go/internal/services/lanes"
)

var arucoDictionaries = map[string]gocv.ArucoDictionaryCode{
	"4x4_50":   gocv.ArucoDict4x4_50,
	"4x4_100":  gocv.ArucoDict4x4_100,
	"4x4_250":  gocv.ArucoDict4x4_250,
	"5x5_50":   gocv.ArucoDict5x5_50,
	"5x5_100":  gocv.ArucoDict5x5_100,
	"6x6_50":   gocv.ArucoDict6x6_50,
	"6x6_250":  gocv.ArucoDict6x6_250,
	"original": gocv.ArucoDictArucoOriginal,
}

// MarkerDetector finds ArUco fiducials in a frame
type MarkerDetector struct {
	detector gocv.ArucoDetector
}

// NewMarkerDetector accepts dictionary names such as "4x4_50"
func NewMarkerDetector(dictionary string) (*MarkerDetector, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.ToUpper(dictionary), "DICT_"))
	dt, ok := arucoDictionaries[name]
	if !ok {
		return nil, fmt.Errorf("unknown ArUco dictionary %q", dictionary)
	}

	dict := gocv.GetPredefinedDictionary(dt)
	params := gocv.NewArucoDetectorParameters()
	return &MarkerDetector{detector: gocv.NewArucoDetectorWithParams(dict, params)}, nil
}

// Markers detects markers in frame. An empty result is not an error here;
// the polygon strategy decides what an empty frame means.
func (m *MarkerDetector) Markers(frame *Frame) ([]lanes.Marker, error) {
	if frame.Mat.Empty() {
		return nil, ErrFrameUnavailable
	}

	corners, ids, _ := m.detector.DetectMarkers(frame.Mat)
	markers := make([]lanes.Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) < 4 {
			continue
		}
		var mk lanes.Marker
		mk.ID = id
		for j := 0; j < 4; j++ {
			mk.Corners[j] = lanes.Point{X: float64(corners[i][j].X), Y: float64(corners[i][j].Y)}
		}
		markers = append(markers, mk)
	}
	return markers, nil
}

// Source binds the detector to one frame for lanes.FrameInput
func (m *MarkerDetector) Source(frame *Frame) lanes.MarkerSource {
	return lanes.MarkerSourceFunc(func() ([]lanes.Marker, error) {
		return m.Markers(frame)
	})
}

func (m *MarkerDetector) Close() error {
	m.detector.Close()
	return nil
}
