package polytraj

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPlanHonorsBoundaryConditions(t *testing.T) {
	waypoints := []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 5, Y: 0, Z: 1}}
	boundary := Boundary{
		V0: r3.Vector{X: 0.2, Y: 0, Z: 0},
		Vf: r3.Vector{},
		A0: r3.Vector{},
		Af: r3.Vector{},
	}
	tr, err := Plan(waypoints, boundary, 1.0, 1.0)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, tr.PositionAt(0).X, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, tr.VelocityAt(0).X, test.ShouldAlmostEqual, 0.2, 1e-6)
	test.That(t, tr.PositionAt(tr.Duration()).X, test.ShouldAlmostEqual, 5.0, 1e-6)
	test.That(t, tr.VelocityAt(tr.Duration()).X, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, tr.AccelerationAt(tr.Duration()).X, test.ShouldAlmostEqual, 0.0, 1e-6)
}

func TestPlanMultiSegmentContinuity(t *testing.T) {
	waypoints := []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 2, Y: 0, Z: 1},
		{X: 2, Y: 2, Z: 1},
	}
	tr, err := Plan(waypoints, Boundary{}, 1.0, 1.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.PositionAt(tr.Duration()).Y, test.ShouldAlmostEqual, 2.0, 1e-6)
}

func TestPlanRejectsTooFewWaypoints(t *testing.T) {
	_, err := Plan([]r3.Vector{{X: 0}}, Boundary{}, 1.0, 1.0)
	test.That(t, err, test.ShouldEqual, ErrTooFewWaypoints)
}

func TestSampleAtIncludesFinalSample(t *testing.T) {
	tr, err := Plan([]r3.Vector{{X: 0}, {X: 3}}, Boundary{}, 1.0, 1.0)
	test.That(t, err, test.ShouldBeNil)
	samples := tr.SampleAt(0.2)
	test.That(t, samples[len(samples)-1].T, test.ShouldAlmostEqual, tr.Duration(), 1e-9)
}
