// Package divider implements the Trajectory Divider / Time Allocator (C6
// in spec.md §4.6): it partitions a sampled trajectory into intervals
// during which the identity of the nearest static obstacle is stable,
// reporting per-interval distance for downstream feasibility analysis and
// telemetry.
//
// Grounded on the ray-cast-driven proximity idiom already established in
// occupancy.Map.CastRay (itself adapted from the teacher's voxel grid in
// pointcloud/voxel.go) — the divider is this package's only consumer of
// CastRay outside the map itself.
package divider

import (
	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/occupancy"
)

// Sample is a single time-stamped trajectory point, matching the shape
// polytraj.Sample and bsplinetraj's spline evaluation both produce.
type Sample struct {
	T float64
	P r3.Vector
}

// Interval is a maximal run of consecutive samples for which the nearest
// static obstacle's identity (approximated by its ray-cast hit point) is
// stable, per spec.md §4.6.
type Interval struct {
	StartIndex, EndIndex int
	NearestDistance      float64
	Valid                bool
}

// rayDirections is a small fixed fan of query directions used to probe for
// the nearest obstacle around a sample, since occupancy.Map exposes ray
// casting rather than a direct nearest-neighbor query.
var rayDirections = []r3.Vector{
	{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
}

// sameObstacle decides whether two ray-cast hit points belong to the same
// obstacle surface, within one map voxel's tolerance.
func sameObstacle(a, b occupancy.RayHit, okA, okB bool, tolerance float64) bool {
	if okA != okB {
		return false
	}
	if !okA {
		return true // neither sample sees an obstacle; "no obstacle" counts as the same identity
	}
	return a.Point.Sub(b.Point).Norm() <= tolerance
}

// nearestHit scans the fixed ray fan from p and returns the closest hit
// within maxRange, or ok=false if none of the rays hit anything.
func nearestHit(m *occupancy.Map, p r3.Vector, maxRange float64) (occupancy.RayHit, bool) {
	var best occupancy.RayHit
	found := false
	for _, dir := range rayDirections {
		hit, ok := m.CastRay(p, dir, maxRange)
		if !ok {
			continue
		}
		if !found || hit.Dist < best.Dist {
			best = hit
			found = true
		}
	}
	return best, found
}

// Partition divides samples into intervals of stable nearest-obstacle
// identity, per spec.md §4.6. maxRange bounds how far the ray fan searches
// for an obstacle; tolerance is the distance within which two hit points
// are considered the same obstacle surface (typically a few voxel
// resolutions). A nil or empty result (non-fatal, per spec.md §4.6) simply
// disables the feature for this plan.
func Partition(m *occupancy.Map, samples []Sample, maxRange, tolerance float64) []Interval {
	if len(samples) == 0 {
		return nil
	}

	var intervals []Interval
	start := 0
	prevHit, prevOK := nearestHit(m, samples[0].P, maxRange)
	minDist := rayDistOrRange(prevHit, prevOK, maxRange)

	flush := func(end int) {
		intervals = append(intervals, Interval{
			StartIndex:      start,
			EndIndex:        end,
			NearestDistance: minDist,
			Valid:           true,
		})
	}

	for i := 1; i < len(samples); i++ {
		hit, ok := nearestHit(m, samples[i].P, maxRange)
		if !sameObstacle(prevHit, hit, prevOK, ok, tolerance) {
			flush(i - 1)
			start = i
			minDist = rayDistOrRange(hit, ok, maxRange)
		} else if d := rayDistOrRange(hit, ok, maxRange); d < minDist {
			minDist = d
		}
		prevHit, prevOK = hit, ok
	}
	flush(len(samples) - 1)
	return intervals
}

func rayDistOrRange(hit occupancy.RayHit, ok bool, maxRange float64) float64 {
	if !ok {
		return maxRange
	}
	return hit.Dist
}
