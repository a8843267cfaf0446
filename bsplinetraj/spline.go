// Package bsplinetraj implements the B-spline Trajectory Optimizer (C5 in
// spec.md §4.5): it seeds a uniform cubic B-spline from an input polyline
// and refines its control points by descending a composite cost —
// smoothness, static clearance, dynamic clearance, and feasibility — with
// a central-difference gradient over a flat []float64 and
// gonum/optimize for the descent itself, the way the teacher's numeric
// code (utils/distance.go, motionplan/plannerOptions.go) leans on the
// gonum stack rather than hand-rolled linear algebra.
package bsplinetraj

import (
	"github.com/golang/geo/r3"
)

// Degree is fixed at 3 (cubic), per spec.md §3 ("B-spline trajectory").
const Degree = 3

// Spline is a uniform cubic B-spline over ℝ³ with fixed knot spacing Delta,
// plus the linear time-rescaling factor Rho computed at the end of
// optimization (spec.md §3, §4.5).
type Spline struct {
	ControlPoints []r3.Vector
	Delta         float64
	Rho           float64
}

// Duration returns T = (n - degree) * Delta, per spec.md §3.
func (s *Spline) Duration() float64 {
	n := len(s.ControlPoints)
	if n <= Degree {
		return 0
	}
	return float64(n-Degree) * s.Delta
}

// clampSplineTime maps wall time onto spline parameter time using Rho, per
// spec.md §3 ("evaluation at wall time t uses spline time ρ·t").
func (s *Spline) clampSplineTime(wallTime float64) float64 {
	rho := s.Rho
	if rho <= 0 {
		rho = 1
	}
	u := wallTime * rho
	if u < 0 {
		u = 0
	}
	if d := s.Duration(); u > d {
		u = d
	}
	return u
}

// segmentAndLocalT converts spline-parameter time u into a control-point
// segment index and a local parameter t in [0,1] along that segment's
// uniform cubic basis.
func (s *Spline) segmentAndLocalT(u float64) (int, float64) {
	idx := int(u / s.Delta)
	maxIdx := len(s.ControlPoints) - Degree - 1
	if idx > maxIdx {
		idx = maxIdx
	}
	if idx < 0 {
		idx = 0
	}
	local := u/s.Delta - float64(idx)
	if local < 0 {
		local = 0
	}
	if local > 1 {
		local = 1
	}
	return idx, local
}

// basis0 returns the degree-3 uniform B-spline blending weights for local
// parameter t, evaluating position.
func basis0(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		(1 - 3*t + 3*t2 - t3) / 6,
		(4 - 6*t2 + 3*t3) / 6,
		(1 + 3*t + 3*t2 - 3*t3) / 6,
		t3 / 6,
	}
}

// basis1 returns the first-derivative blending weights (w.r.t. t, not wall
// time — callers divide by Delta per the chain rule).
func basis1(t float64) [4]float64 {
	t2 := t * t
	return [4]float64{
		(-3 + 6*t - 3*t2) / 6,
		(-12*t + 9*t2) / 6,
		(3 + 6*t - 9*t2) / 6,
		3 * t2 / 6,
	}
}

// basis2 returns the second-derivative blending weights w.r.t. t.
func basis2(t float64) [4]float64 {
	return [4]float64{
		(6 - 6*t) / 6,
		(-12 + 18*t) / 6,
		(6 - 18*t) / 6,
		6 * t / 6,
	}
}

func blend(weights [4]float64, pts []r3.Vector, idx int) r3.Vector {
	out := r3.Vector{}
	for k := 0; k < 4; k++ {
		out = out.Add(pts[idx+k].Mul(weights[k]))
	}
	return out
}

// PositionAt evaluates spline position at wall time t.
func (s *Spline) PositionAt(t float64) r3.Vector {
	u := s.clampSplineTime(t)
	idx, local := s.segmentAndLocalT(u)
	return blend(basis0(local), s.ControlPoints, idx)
}

// VelocityAt evaluates world-frame velocity at wall time t: v_world =
// v_spline * ρ, per spec.md §3.
func (s *Spline) VelocityAt(t float64) r3.Vector {
	u := s.clampSplineTime(t)
	idx, local := s.segmentAndLocalT(u)
	dSplineDt := blend(basis1(local), s.ControlPoints, idx).Mul(1 / s.Delta)
	rho := s.Rho
	if rho <= 0 {
		rho = 1
	}
	return dSplineDt.Mul(rho)
}

// AccelerationAt evaluates world-frame acceleration at wall time t: a_world
// = a_spline * ρ², per spec.md §3.
func (s *Spline) AccelerationAt(t float64) r3.Vector {
	u := s.clampSplineTime(t)
	idx, local := s.segmentAndLocalT(u)
	d2SplineDt2 := blend(basis2(local), s.ControlPoints, idx).Mul(1 / (s.Delta * s.Delta))
	rho := s.Rho
	if rho <= 0 {
		rho = 1
	}
	return d2SplineDt2.Mul(rho * rho)
}

// TerminalWallTime returns the wall-clock duration (from the trajectory's
// StartWallTime) at which this spline reaches its end, i.e. the wall time t
// for which clampSplineTime(t) == Duration().
func (s *Spline) TerminalWallTime() float64 {
	rho := s.Rho
	if rho <= 0 {
		rho = 1
	}
	return s.Duration() / rho
}

// TerminalPosition, TerminalVelocity, and TerminalAcceleration evaluate the
// spline at its own terminal wall time, used by the orchestrator (C9) to
// read the boundary state a continuation plan must match, per spec.md §4.9.
func (s *Spline) TerminalPosition() r3.Vector {
	return s.PositionAt(s.TerminalWallTime())
}

func (s *Spline) TerminalVelocity() r3.Vector {
	return s.VelocityAt(s.TerminalWallTime())
}

func (s *Spline) TerminalAcceleration() r3.Vector {
	return s.AccelerationAt(s.TerminalWallTime())
}

// splineVelocityAt and splineAccelerationAt evaluate the *unscaled* spline
// derivatives (ρ=1), used internally by linear_factor search which must
// scan derivative norms before ρ is known.
func (s *Spline) splineVelocityAt(u float64) r3.Vector {
	idx, local := s.segmentAndLocalT(u)
	return blend(basis1(local), s.ControlPoints, idx).Mul(1 / s.Delta)
}

func (s *Spline) splineAccelerationAt(u float64) r3.Vector {
	idx, local := s.segmentAndLocalT(u)
	return blend(basis2(local), s.ControlPoints, idx).Mul(1 / (s.Delta * s.Delta))
}
