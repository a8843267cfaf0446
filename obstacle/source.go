// Package obstacle implements the Obstacle Source (C2 in spec.md §4.2): a
// point-in-time snapshot store for tracked dynamic obstacles.
//
// Grounded on the mutex-guarded, pull-based snapshot shape used by the
// teacher's vision-service polling in services/motion/builtin/replan.go
// (getExtraObstacles) — the core never mutates a snapshot once taken.
package obstacle

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/spatialmath"
)

// Dynamic is a tracked moving obstacle, per spec.md §3: axis-aligned,
// described by position, velocity, and extent.
type Dynamic struct {
	Position r3.Vector
	Velocity r3.Vector
	Extent   r3.Vector
}

// PredictedPosition linearly extrapolates the obstacle's position dt seconds
// ahead, used by the B-spline optimizer's dynamic clearance term (spec.md
// §4.5: "propagated along the obstacle's velocity").
func (d Dynamic) PredictedPosition(dt float64) r3.Vector {
	return d.Position.Add(d.Velocity.Mul(dt))
}

// Static is any tracked obstacle (dynamic or not) reported for the purpose
// of carving a free region around it in the occupancy map (spec.md §4.2
// "snapshot_all").
type Static struct {
	Position r3.Vector
	Extent   r3.Vector
}

// Bounds returns the obstacle's axis-aligned bounding box, used to carve it
// out of the occupancy map (spec.md §4.1/§4.2).
func (s Static) Bounds() spatialmath.AABB {
	return spatialmath.NewAABB(s.Position, s.Extent)
}

// Source is a thread-safe store of the most recently reported obstacles.
// Perception (out of scope per spec.md §1) calls Update; the core calls
// Snapshot/SnapshotAll.
type Source struct {
	mu       sync.RWMutex
	dynamic  []Dynamic
	all      []Static
}

// NewSource returns an empty Source.
func NewSource() *Source {
	return &Source{}
}

// Update replaces the current obstacle set. Both slices are point-in-time;
// Update does not merge with prior state.
func (s *Source) Update(dynamic []Dynamic, all []Static) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dynamic = append([]Dynamic(nil), dynamic...)
	s.all = append([]Static(nil), all...)
}

// Snapshot returns the dynamic obstacles inside a cone maxFOVRadians wide
// centred on heading (within maxFOVRadians/2 of it, measured from
// vehiclePos), per spec.md §4.2.
// A maxFOVRadians of >= pi returns every tracked dynamic obstacle.
func (s *Source) Snapshot(vehiclePos, heading r3.Vector, maxFOVRadians float64) []Dynamic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if maxFOVRadians >= math.Pi || heading.Norm() == 0 {
		return append([]Dynamic(nil), s.dynamic...)
	}

	out := make([]Dynamic, 0, len(s.dynamic))
	h := heading.Normalize()
	for _, d := range s.dynamic {
		toObstacle := d.Position.Sub(vehiclePos)
		if toObstacle.Norm() == 0 {
			out = append(out, d)
			continue
		}
		cosAngle := h.Dot(toObstacle.Normalize())
		// clamp for acos numerical safety
		if cosAngle > 1 {
			cosAngle = 1
		} else if cosAngle < -1 {
			cosAngle = -1
		}
		if math.Acos(cosAngle) <= maxFOVRadians/2 {
			out = append(out, d)
		}
	}
	return out
}

// SnapshotAll returns every obstacle tracked this cycle, used to carve free
// regions in the occupancy map.
func (s *Source) SnapshotAll() []Static {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Static(nil), s.all...)
}
