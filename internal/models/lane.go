package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lane identifies one of the four directional traffic-flow regions
type Lane int

const (
	LaneNorth Lane = iota
	LaneSouth
	LaneEast
	LaneWest

	// LaneUnassigned is reported for a centroid that matched no lane
	LaneUnassigned Lane = -1
)

// NumLanes is the size of the fixed lane enumeration
const NumLanes = 4

// Lanes lists every lane in canonical order (N, S, E, W).
// Wire formats, logging and first-match tie breaking all follow this order.
var Lanes = [NumLanes]Lane{LaneNorth, LaneSouth, LaneEast, LaneWest}

var laneNames = [NumLanes]string{"North", "South", "East", "West"}

// String returns the lane's display name
func (l Lane) String() string {
	if l.Valid() {
		return laneNames[l]
	}
	return "Unassigned"
}

// Valid reports whether l is one of the four canonical lanes
func (l Lane) Valid() bool {
	return l >= LaneNorth && l <= LaneWest
}

// ParseLane accepts a lane name or its initial, case-insensitively
func ParseLane(s string) (Lane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n":
		return LaneNorth, nil
	case "south", "s":
		return LaneSouth, nil
	case "east", "e":
		return LaneEast, nil
	case "west", "w":
		return LaneWest, nil
	}
	return LaneUnassigned, fmt.Errorf("unknown lane %q", s)
}

// CountRecord is the per-frame tally of detections per lane.
// It is a fixed array so every lane always has an entry.
type CountRecord [NumLanes]int

// Get returns the count for lane l; unassigned yields zero
func (r CountRecord) Get(l Lane) int {
	if !l.Valid() {
		return 0
	}
	return r[l]
}

// Inc adds one detection to lane l. Unassigned lanes are ignored.
func (r *CountRecord) Inc(l Lane) {
	if l.Valid() {
		r[l]++
	}
}

// Total returns the number of assigned detections
func (r CountRecord) Total() int {
	total := 0
	for _, c := range r {
		total += c
	}
	return total
}

// Map returns the record keyed by lane name
func (r CountRecord) Map() map[string]int {
	out := make(map[string]int, NumLanes)
	for _, l := range Lanes {
		out[l.String()] = r[l]
	}
	return out
}

// String renders the record as "N=1 S=2 E=3 W=4"
func (r CountRecord) String() string {
	return fmt.Sprintf("N=%d S=%d E=%d W=%d", r[LaneNorth], r[LaneSouth], r[LaneEast], r[LaneWest])
}

func (r CountRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

func (r *CountRecord) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out CountRecord
	for name, count := range m {
		l, err := ParseLane(name)
		if err != nil {
			return err
		}
		if count < 0 {
			return fmt.Errorf("negative count %d for lane %s", count, l)
		}
		out[l] = count
	}
	*r = out
	return nil
}
