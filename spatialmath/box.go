package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// AABB is an axis-aligned bounding box described by its center and
// half-size along each axis, matching the dynamic obstacle representation
// of spec.md §3 ("(position, velocity, extent)") and the map-bounds query
// of spec.md §4.1.
type AABB struct {
	Center   r3.Vector
	HalfSize r3.Vector
}

// NewAABB returns the AABB centered at center with full size dims.
func NewAABB(center, dims r3.Vector) AABB {
	return AABB{Center: center, HalfSize: dims.Mul(0.5)}
}

// Contains reports whether p lies within the box.
func (b AABB) Contains(p r3.Vector) bool {
	d := p.Sub(b.Center)
	return math.Abs(d.X) <= b.HalfSize.X && math.Abs(d.Y) <= b.HalfSize.Y && math.Abs(d.Z) <= b.HalfSize.Z
}

// Min returns the box's minimum corner.
func (b AABB) Min() r3.Vector {
	return b.Center.Sub(b.HalfSize)
}

// Max returns the box's maximum corner.
func (b AABB) Max() r3.Vector {
	return b.Center.Add(b.HalfSize)
}
