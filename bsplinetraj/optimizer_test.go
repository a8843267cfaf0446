package bsplinetraj

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
)

func newTestMap() *occupancy.Map {
	return occupancy.NewMap(0.1, 0.3, r3.Vector{X: -10, Y: -10, Z: 0}, r3.Vector{X: 10, Y: 10, Z: 5})
}

func straightPath(start, end r3.Vector, step float64) []r3.Vector {
	dist := end.Sub(start).Norm()
	n := int(dist/step) + 1
	out := make([]r3.Vector, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		out = append(out, start.Add(end.Sub(start).Mul(t)))
	}
	return out
}

func TestCheckInputSpacingRejectsTooCoarsePath(t *testing.T) {
	opt := NewOptimizer(newTestMap(), 1.0, 1.0)
	path := []r3.Vector{{X: 0}, {X: 10}}
	ok, _, _, _ := opt.CheckInputSpacing(path, 0.5)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestCheckInputSpacingAcceptsFineSampledPath(t *testing.T) {
	opt := NewOptimizer(newTestMap(), 1.0, 1.0)
	path := straightPath(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 5, Y: 0, Z: 1}, 0.4)
	ok, _, _, tFinal := opt.CheckInputSpacing(path, 0.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, tFinal, test.ShouldBeGreaterThan, 0.0)
}

func TestSetInputClampsBoundary(t *testing.T) {
	opt := NewOptimizer(newTestMap(), 1.0, 1.0)
	path := straightPath(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 5, Y: 0, Z: 1}, 0.3)
	boundary := Boundary{V0: r3.Vector{X: 0.2}, Vf: r3.Vector{}, A0: r3.Vector{}, Af: r3.Vector{}}
	err := opt.SetInput(path, boundary, 0.3)
	test.That(t, err, test.ShouldBeNil)

	p := opt.spline.PositionAt(0)
	test.That(t, p.X, test.ShouldAlmostEqual, 0, 1e-6)
	v := opt.spline.VelocityAt(0)
	test.That(t, v.X, test.ShouldAlmostEqual, 0.2, 1e-6)
}

func TestOptimizeAvoidsObstacleAndStaysFeasible(t *testing.T) {
	m := newTestMap()
	opt := NewOptimizer(m, 1.0, 1.0)
	opt.iterationCap = 50

	// Block the middle of the straight-line run from (0,0,1) to (4,0,1), so
	// the optimized spline can only stay feasible by actually detouring
	// around it rather than passing straight through.
	for x := 1.7; x <= 2.3; x += 0.1 {
		m.SetOccupied(r3.Vector{X: x, Y: 0, Z: 1})
	}

	path := straightPath(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 4, Y: 0, Z: 1}, 0.3)
	test.That(t, opt.SetInput(path, Boundary{}, 0.3), test.ShouldBeNil)

	spline, err := opt.Optimize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spline.Rho, test.ShouldBeGreaterThan, 0.0)
	test.That(t, spline.Rho, test.ShouldBeLessThanOrEqualTo, 1.0)

	for tt := 0.0; tt <= spline.TerminalWallTime(); tt += 0.05 {
		test.That(t, m.InflatedOccupied(spline.PositionAt(tt)), test.ShouldNotEqual, occupancy.InflatedOccupied)
	}
}

func TestOptimizeWithDynamicObstacleProducesResult(t *testing.T) {
	m := newTestMap()
	opt := NewOptimizer(m, 1.0, 1.0)
	opt.iterationCap = 30
	opt.SetDynamicObstacles([]obstacle.Dynamic{
		{Position: r3.Vector{X: 2, Y: 0, Z: 1}, Velocity: r3.Vector{}, Extent: r3.Vector{X: 0.3, Y: 0.3, Z: 0.3}},
	})

	path := straightPath(r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 4, Y: 0, Z: 1}, 0.3)
	test.That(t, opt.SetInput(path, Boundary{}, 0.3), test.ShouldBeNil)

	_, err := opt.Optimize()
	test.That(t, err, test.ShouldBeNil)
}
