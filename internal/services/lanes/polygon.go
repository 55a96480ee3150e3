package lanes

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"traffic-worker-go/internal/models"
)

// minPolygonPoints is the fewest resolved marker centres that still form a lane
const minPolygonPoints = 3

// Point is a sub-pixel image coordinate
type Point struct {
	X, Y float64
}

// Marker is one detected fiducial marker
type Marker struct {
	ID      int
	Corners [4]Point
}

// Center is the mean of the marker's four corners
func (m Marker) Center() Point {
	var c Point
	for _, p := range m.Corners {
		c.X += p.X
		c.Y += p.Y
	}
	return Point{X: c.X / 4, Y: c.Y / 4}
}

// Polygon is an ordered ring of vertices; the closing edge is implicit
type Polygon []Point

// Contains reports whether (x, y) lies inside p or on its boundary
func (p Polygon) Contains(x, y float64) bool {
	if len(p) < minPolygonPoints {
		return false
	}
	return planar.RingContains(p.ring(), orb.Point{x, y})
}

func (p Polygon) ring() orb.Ring {
	r := make(orb.Ring, len(p))
	for i, v := range p {
		r[i] = orb.Point{v.X, v.Y}
	}
	return r
}

func onSegment(a, b Point, x, y float64) bool {
	cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
	if math.Abs(cross) > 1e-9 {
		return false
	}
	return x >= math.Min(a.X, b.X) && x <= math.Max(a.X, b.X) &&
		y >= math.Min(a.Y, b.Y) && y <= math.Max(a.Y, b.Y)
}

func (p Polygon) imagePoints() []image.Point {
	out := make([]image.Point, len(p))
	for i, v := range p {
		out[i] = image.Pt(int(v.X), int(v.Y))
	}
	return out
}

// DefaultLaneMarkers is the printed rig layout: four consecutive IDs per lane
func DefaultLaneMarkers() map[models.Lane][]int {
	return map[models.Lane][]int{
		models.LaneNorth: {0, 1, 2, 3},
		models.LaneSouth: {4, 5, 6, 7},
		models.LaneEast:  {8, 9, 10, 11},
		models.LaneWest:  {12, 13, 14, 15},
	}
}

// BuildLanePolygons resolves each lane's marker IDs to marker centres, in the
// order the IDs are listed. Lanes with fewer than three resolved centres are
// omitted. The first detection of a duplicated ID wins.
func BuildLanePolygons(markers []Marker, laneMarkers map[models.Lane][]int) map[models.Lane]Polygon {
	byID := make(map[int]Marker, len(markers))
	for _, m := range markers {
		if _, seen := byID[m.ID]; !seen {
			byID[m.ID] = m
		}
	}

	out := make(map[models.Lane]Polygon, models.NumLanes)
	for _, lane := range models.Lanes {
		var poly Polygon
		for _, id := range laneMarkers[lane] {
			if m, ok := byID[id]; ok {
				poly = append(poly, m.Center())
			}
		}
		if len(poly) >= minPolygonPoints {
			out[lane] = poly
		}
	}
	return out
}

// PolygonStrategy builds lane polygons from fiducial markers every frame
type PolygonStrategy struct {
	laneMarkers map[models.Lane][]int
}

func NewPolygonStrategy(laneMarkers map[models.Lane][]int) *PolygonStrategy {
	return &PolygonStrategy{laneMarkers: laneMarkers}
}

func (s *PolygonStrategy) Name() string { return StrategyPolygon }

func (s *PolygonStrategy) Prepare(in FrameInput) (Assigner, error) {
	if err := checkBounds(in.Bounds); err != nil {
		return nil, err
	}
	if in.Markers == nil {
		return nil, fmt.Errorf("polygon strategy: %w", ErrNoMarkers)
	}
	markers, err := in.Markers.Markers()
	if err != nil {
		return nil, fmt.Errorf("detect markers: %w", err)
	}
	if len(markers) == 0 {
		return nil, ErrNoMarkers
	}

	a := &PolygonAssigner{bounds: in.Bounds}
	for lane, poly := range BuildLanePolygons(markers, s.laneMarkers) {
		a.polygons[lane] = poly
	}
	return a, nil
}

// PolygonAssigner is the frame-scoped result of PolygonStrategy
type PolygonAssigner struct {
	bounds   image.Rectangle
	polygons [models.NumLanes]Polygon
}

// Assign returns the first lane, in canonical order, whose polygon holds c
func (a *PolygonAssigner) Assign(c models.Centroid) models.Lane {
	c = clamp(c, a.bounds)
	x, y := float64(c.X), float64(c.Y)
	for _, l := range models.Lanes {
		if a.polygons[l].Contains(x, y) {
			return l
		}
	}
	return models.LaneUnassigned
}

// Polygon returns the lane polygon for this frame, nil when it was omitted
func (a *PolygonAssigner) Polygon(l models.Lane) Polygon {
	if !l.Valid() {
		return nil
	}
	return a.polygons[l]
}

func (a *PolygonAssigner) Regions() []Region {
	var out []Region
	for _, l := range models.Lanes {
		if p := a.polygons[l]; p != nil {
			out = append(out, Region{Lane: l, Points: p.imagePoints()})
		}
	}
	return out
}

// Overlaps lists lane pairs whose polygons intersect. A centroid in an
// overlap is counted for the earlier lane only.
func (a *PolygonAssigner) Overlaps() [][2]models.Lane {
	var out [][2]models.Lane
	for i := 0; i < models.NumLanes; i++ {
		for j := i + 1; j < models.NumLanes; j++ {
			p, q := a.polygons[i], a.polygons[j]
			if p != nil && q != nil && polygonsIntersect(p, q) {
				out = append(out, [2]models.Lane{models.Lane(i), models.Lane(j)})
			}
		}
	}
	return out
}

func polygonsIntersect(p, q Polygon) bool {
	for i := range p {
		a1, a2 := p[i], p[(i+1)%len(p)]
		for j := range q {
			b1, b2 := q[j], q[(j+1)%len(q)]
			if segmentsCross(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return strictlyInside(p, q[0]) || strictlyInside(q, p[0])
}

func strictlyInside(p Polygon, v Point) bool {
	for i := range p {
		if onSegment(p[i], p[(i+1)%len(p)], v.X, v.Y) {
			return false
		}
	}
	return p.Contains(v.X, v.Y)
}

// segmentsCross reports a proper crossing; shared edges and touching corners
// are not overlaps.
func segmentsCross(a, b, c, d Point) bool {
	o1, o2 := orient(a, b, c), orient(a, b, d)
	o3, o4 := orient(c, d, a), orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

func orient(a, b, c Point) float64 {
	v := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	switch {
	case v > 1e-9:
		return 1
	case v < -1e-9:
		return -1
	}
	return 0
}
