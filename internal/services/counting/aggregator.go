package counting

import (
	"strings"

	"traffic-worker-go/internal/models"
	"traffic-worker-go/internal/services/lanes"
)

// DefaultAllowedClasses are the COCO vehicle classes
var DefaultAllowedClasses = []string{"car", "motorcycle", "bus", "truck"}

// Result is the outcome of counting one frame
type Result struct {
	Counts models.CountRecord
	// Considered is the number of detections with an allowed class
	Considered int
	// Unassigned is the number of allowed detections that matched no lane
	Unassigned int
}

// Aggregator tallies a frame's detections into a CountRecord
type Aggregator struct {
	allowed map[string]struct{}
}

// NewAggregator counts only detections whose class name is in allowed.
// An empty list counts every class.
func NewAggregator(allowed []string) *Aggregator {
	a := &Aggregator{}
	if len(allowed) > 0 {
		a.allowed = make(map[string]struct{}, len(allowed))
		for _, name := range allowed {
			a.allowed[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	}
	return a
}

// Allows reports whether a class name is counted
func (a *Aggregator) Allows(className string) bool {
	if a.allowed == nil {
		return true
	}
	_, ok := a.allowed[strings.ToLower(className)]
	return ok
}

// Count assigns every allowed detection to a lane in a single pass. The
// record is freshly allocated, so repeated calls with the same inputs return
// identical results.
func (a *Aggregator) Count(dets []models.Detection, assigner lanes.Assigner) Result {
	var res Result
	for _, d := range dets {
		if !a.Allows(d.ClassName) {
			continue
		}
		res.Considered++
		lane := assigner.Assign(d.Centroid())
		if !lane.Valid() {
			res.Unassigned++
			continue
		}
		res.Counts.Inc(lane)
	}
	return res
}
