package globalplan

import (
	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/occupancy"
)

// Simplify greedily removes intermediate waypoints that can be skipped
// without introducing a collision, turning the raw RRT zig-zag into a
// shorter sequence of waypoints for the polynomial planner (C4) to
// interpolate between, per spec.md §4.3 ("a coarse... sequence of
// waypoints").
func Simplify(m *occupancy.Map, path []r3.Vector, inflated bool) []r3.Vector {
	if len(path) <= 2 {
		return path
	}

	out := []r3.Vector{path[0]}
	anchor := 0
	for i := 2; i < len(path); i++ {
		if m.SegmentFree(path[anchor], path[i], inflated) {
			continue
		}
		out = append(out, path[i-1])
		anchor = i - 1
	}
	out = append(out, path[len(path)-1])
	return out
}
