package occupancy

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func newTestMap() *Map {
	return NewMap(0.1, 0.3, r3.Vector{X: -10, Y: -10, Z: 0}, r3.Vector{X: 10, Y: 10, Z: 5})
}

func TestOccupiedAndInflated(t *testing.T) {
	m := newTestMap()
	m.SetOccupied(r3.Vector{X: 2, Y: 0, Z: 1})

	test.That(t, m.Occupied(r3.Vector{X: 2, Y: 0, Z: 1}), test.ShouldEqual, Occupied)
	test.That(t, m.Occupied(r3.Vector{X: 5, Y: 5, Z: 1}), test.ShouldEqual, Free)
	test.That(t, m.InflatedOccupied(r3.Vector{X: 2.2, Y: 0, Z: 1}), test.ShouldEqual, InflatedOccupied)
	test.That(t, m.InflatedOccupied(r3.Vector{X: 5, Y: 5, Z: 1}), test.ShouldEqual, Free)
}

func TestUnknownOutsideBounds(t *testing.T) {
	m := newTestMap()
	test.That(t, m.Occupied(r3.Vector{X: 100, Y: 0, Z: 1}), test.ShouldEqual, Unknown)
}

func TestCastRayHitsNearestOccupied(t *testing.T) {
	m := newTestMap()
	m.SetOccupied(r3.Vector{X: 3, Y: 0, Z: 1})

	hit, ok := m.CastRay(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 1, Y: 0, Z: 0}, 10)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, hit.Dist, test.ShouldBeLessThan, 3.2)
}

func TestCastRayNoHit(t *testing.T) {
	m := newTestMap()
	_, ok := m.CastRay(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 1, Y: 0, Z: 0}, 5)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSegmentFreeDetectsCollision(t *testing.T) {
	m := newTestMap()
	m.SetOccupied(r3.Vector{X: 5, Y: 0, Z: 1})

	test.That(t, m.SegmentFree(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 10, Y: 0, Z: 1}, false), test.ShouldBeFalse)
	test.That(t, m.SegmentFree(r3.Vector{X: 0, Y: 5, Z: 1}, r3.Vector{X: 10, Y: 5, Z: 1}, false), test.ShouldBeTrue)
}

func TestUpdateFreeRegionClearsOccupancy(t *testing.T) {
	m := newTestMap()
	m.SetOccupied(r3.Vector{X: 1, Y: 1, Z: 1})
	m.UpdateFreeRegion(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vector{X: 1.5, Y: 1.5, Z: 1.5})
	test.That(t, m.Occupied(r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldEqual, Free)
}

func TestDistanceToNearestOccupied(t *testing.T) {
	m := newTestMap()
	m.SetOccupied(r3.Vector{X: 3, Y: 0, Z: 1})

	dist, found := m.DistanceToNearestOccupied(r3.Vector{X: 0, Y: 0, Z: 1}, 5)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, dist, test.ShouldBeLessThan, 3.2)

	_, found = m.DistanceToNearestOccupied(r3.Vector{X: -8, Y: -8, Z: 1}, 1)
	test.That(t, found, test.ShouldBeFalse)
}
