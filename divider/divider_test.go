package divider

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/windlass-robotics/navcore/occupancy"
)

func TestPartitionSplitsOnObstacleChange(t *testing.T) {
	m := occupancy.NewMap(0.1, 0.2, r3.Vector{X: -10, Y: -10, Z: 0}, r3.Vector{X: 10, Y: 10, Z: 5})
	m.SetOccupied(r3.Vector{X: 3, Y: 0, Z: 1})
	m.SetOccupied(r3.Vector{X: -5, Y: 0, Z: 1})

	samples := []Sample{
		{T: 0, P: r3.Vector{X: 0, Y: 0, Z: 1}},
		{T: 1, P: r3.Vector{X: 1, Y: 0, Z: 1}},
		{T: 2, P: r3.Vector{X: -2, Y: 0, Z: 1}},
	}
	intervals := Partition(m, samples, 8, 0.3)
	test.That(t, len(intervals), test.ShouldBeGreaterThan, 0)
	for _, iv := range intervals {
		test.That(t, iv.Valid, test.ShouldBeTrue)
	}
}

func TestPartitionEmptySamplesReturnsNil(t *testing.T) {
	m := occupancy.NewMap(0.1, 0.2, r3.Vector{X: -10, Y: -10, Z: 0}, r3.Vector{X: 10, Y: 10, Z: 5})
	test.That(t, Partition(m, nil, 8, 0.3), test.ShouldBeNil)
}
