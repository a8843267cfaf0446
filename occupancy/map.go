// Package occupancy implements the Map Query Adapter (C1 in spec.md §4.1):
// read-only point/ray/bounds queries into a voxel occupancy map, plus the
// single write operation used to keep the vehicle's own body and freshly
// detected dynamic obstacles from contaminating the static map.
//
// The grid is sparse, keyed by integer voxel coordinates — grounded on the
// teacher's VoxelCoords idiom (go.viam.com/rdk/pointcloud/voxel.go) — rather
// than a dense array, since most of a drone's local map is unobserved.
package occupancy

import (
	"sync"

	"github.com/golang/geo/r3"
)

// State is the occupancy state of a single voxel.
type State int

// States per spec.md §3 ("Static obstacle query").
const (
	Free State = iota
	Occupied
	InflatedOccupied
	Unknown
)

// Coords keys a single voxel in the grid.
type Coords struct {
	I, J, K int64
}

// Map is a thread-safe, resolution-fixed voxel occupancy grid.
type Map struct {
	mu         sync.RWMutex
	resolution float64
	inflation  float64
	min, max   r3.Vector
	occupied   map[Coords]struct{}
}

// NewMap returns an empty map with the given voxel resolution (meters per
// voxel edge), inflation radius (meters), and metric bounds.
func NewMap(resolution, inflationRadius float64, min, max r3.Vector) *Map {
	return &Map{
		resolution: resolution,
		inflation:  inflationRadius,
		min:        min,
		max:        max,
		occupied:   make(map[Coords]struct{}),
	}
}

// Resolution returns the voxel edge length in meters.
func (m *Map) Resolution() float64 {
	return m.resolution
}

// Bounds returns the map's metric extent.
func (m *Map) Bounds() (r3.Vector, r3.Vector) {
	return m.min, m.max
}

func (m *Map) coordsOf(p r3.Vector) Coords {
	return Coords{
		I: int64(floorDiv(p.X, m.resolution)),
		J: int64(floorDiv(p.Y, m.resolution)),
		K: int64(floorDiv(p.Z, m.resolution)),
	}
}

func floorDiv(v, res float64) float64 {
	q := v / res
	if q < 0 {
		return q - 1
	}
	return q
}

// SetOccupied marks the voxel containing p as occupied. It is the caller's
// (perception subsystem's, out of scope per spec.md §1) responsibility to
// populate the map; this is exposed for tests and simple map builders.
func (m *Map) SetOccupied(p r3.Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupied[m.coordsOf(p)] = struct{}{}
}

func (m *Map) isOccupiedLocked(p r3.Vector) bool {
	_, ok := m.occupied[m.coordsOf(p)]
	return ok
}

// Occupied reports whether p lies in an occupied voxel, or Unknown if p is
// outside the map's bounds.
func (m *Map) Occupied(p r3.Vector) State {
	if !m.inBounds(p) {
		return Unknown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isOccupiedLocked(p) {
		return Occupied
	}
	return Free
}

// InflatedOccupied reports whether p lies within the inflation radius of any
// occupied voxel, or Unknown if p is outside the map's bounds.
func (m *Map) InflatedOccupied(p r3.Vector) State {
	if !m.inBounds(p) {
		return Unknown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.isOccupiedLocked(p) {
		return InflatedOccupied
	}
	cellRadius := int64(m.inflation/m.resolution) + 1
	center := m.coordsOf(p)
	for di := -cellRadius; di <= cellRadius; di++ {
		for dj := -cellRadius; dj <= cellRadius; dj++ {
			for dk := -cellRadius; dk <= cellRadius; dk++ {
				c := Coords{I: center.I + di, J: center.J + dj, K: center.K + dk}
				if _, ok := m.occupied[c]; !ok {
					continue
				}
				voxelCenter := r3.Vector{
					X: float64(c.I)*m.resolution + m.resolution/2,
					Y: float64(c.J)*m.resolution + m.resolution/2,
					Z: float64(c.K)*m.resolution + m.resolution/2,
				}
				if p.Sub(voxelCenter).Norm() <= m.inflation {
					return InflatedOccupied
				}
			}
		}
	}
	return Free
}

func (m *Map) inBounds(p r3.Vector) bool {
	return p.X >= m.min.X && p.X <= m.max.X &&
		p.Y >= m.min.Y && p.Y <= m.max.Y &&
		p.Z >= m.min.Z && p.Z <= m.max.Z
}

// RayHit is the result of a successful CastRay.
type RayHit struct {
	Point r3.Vector
	Dist  float64
}

// CastRay walks from origin along dir (need not be unit length) in
// resolution-sized steps, up to maxDist, and returns the first occupied
// voxel hit, per spec.md §4.1.
func (m *Map) CastRay(origin, dir r3.Vector, maxDist float64) (RayHit, bool) {
	d := dir.Normalize()
	if d.Norm() == 0 {
		return RayHit{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	step := m.resolution
	for t := 0.0; t <= maxDist; t += step {
		p := origin.Add(d.Mul(t))
		if !m.inBounds(p) {
			continue
		}
		if m.isOccupiedLocked(p) {
			return RayHit{Point: p, Dist: t}, true
		}
	}
	return RayHit{}, false
}

// SegmentFree reports whether every point along [a, b], sampled every
// resolution/2, is free of (inflated) occupancy — used by the global
// planner's edge-validity check (spec.md §4.3: "every segment is
// collision-free against the map at query time").
func (m *Map) SegmentFree(a, b r3.Vector, inflated bool) bool {
	dist := b.Sub(a).Norm()
	if dist == 0 {
		return m.stateOf(a, inflated) != Occupied && m.stateOf(a, inflated) != InflatedOccupied
	}
	step := m.resolution / 2
	n := int(dist/step) + 1
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		p := a.Add(b.Sub(a).Mul(t))
		s := m.stateOf(p, inflated)
		if s == Occupied || s == InflatedOccupied {
			return false
		}
	}
	return true
}

func (m *Map) stateOf(p r3.Vector, inflated bool) State {
	if inflated {
		return m.InflatedOccupied(p)
	}
	return m.Occupied(p)
}

// DistanceToNearestOccupied searches outward in expanding voxel rings from p
// and returns the metric distance to the nearest occupied voxel center,
// capped at maxRadius. It reports false if nothing occupied was found
// within that radius. Used by the B-spline optimizer's static clearance
// term (spec.md §4.5), which needs a continuous distance rather than the
// boolean InflatedOccupied used for hard collision checks.
func (m *Map) DistanceToNearestOccupied(p r3.Vector, maxRadius float64) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cellRadius := int64(maxRadius/m.resolution) + 1
	center := m.coordsOf(p)
	best := maxRadius
	found := false
	for di := -cellRadius; di <= cellRadius; di++ {
		for dj := -cellRadius; dj <= cellRadius; dj++ {
			for dk := -cellRadius; dk <= cellRadius; dk++ {
				c := Coords{I: center.I + di, J: center.J + dj, K: center.K + dk}
				if _, ok := m.occupied[c]; !ok {
					continue
				}
				voxelCenter := r3.Vector{
					X: float64(c.I)*m.resolution + m.resolution/2,
					Y: float64(c.J)*m.resolution + m.resolution/2,
					Z: float64(c.K)*m.resolution + m.resolution/2,
				}
				if d := p.Sub(voxelCenter).Norm(); d <= best {
					best = d
					found = true
				}
			}
		}
	}
	return best, found
}

// UpdateFreeRegion marks every voxel intersecting the axis-aligned box
// [min, max] as free, per spec.md §4.1 — used to prevent the vehicle's own
// body or a newly detected dynamic obstacle from contaminating the static
// map.
func (m *Map) UpdateFreeRegion(min, max r3.Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmin, cmax := m.coordsOf(min), m.coordsOf(max)
	for i := cmin.I; i <= cmax.I; i++ {
		for j := cmin.J; j <= cmax.J; j++ {
			for k := cmin.K; k <= cmax.K; k++ {
				delete(m.occupied, Coords{I: i, J: j, K: k})
			}
		}
	}
}
