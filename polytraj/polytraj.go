// Package polytraj implements the Piecewise Polynomial Planner (C4 in
// spec.md §4.4): given a sequence of waypoints and boundary velocity/
// acceleration, it produces a time-parameterized, at-least-C²-continuous
// trajectory used either as the sole warm-start for the B-spline optimizer
// or as the tail segment appended to a residual trajectory (spec.md §4.9).
//
// Each segment is a quintic (degree-5) polynomial per axis, solved from its
// six boundary conditions (p, v, a at both ends) the way the teacher solves
// small fixed-size linear systems with gonum/mat in control/kalman_filter.go
// — here the 6x6 system maps quintic coefficients to boundary derivatives
// rather than a covariance update, but the tool (mat.Dense + an LU solve)
// is the same.
package polytraj

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewWaypoints is returned when fewer than two waypoints are given.
var ErrTooFewWaypoints = errors.New("polytraj: need at least two waypoints")

// Boundary bounds a trajectory's velocity and acceleration at its endpoints,
// per spec.md §3 ("Boundary conditions").
type Boundary struct {
	V0, Vf r3.Vector
	A0, Af r3.Vector
}

type quintic struct {
	// coeffs[axis][power], power 0..5, position(t) = sum coeffs[p]*t^p
	coeffs [3][6]float64
	dur    float64
}

// Trajectory is a piecewise quintic polynomial path, C2-continuous at
// segment joins because consecutive segments share position/velocity/
// acceleration at the joint waypoint.
type Trajectory struct {
	segments []quintic
	total    float64
}

// Plan builds a polynomial trajectory through waypoints (≥2 entries, first
// is start, last is goal) honoring boundary at the global start and end.
// Per-segment duration is the larger of dist/desiredVelocity and
// sqrt(2·dist/desiredAcceleration), so a segment's average speed never
// exceeds desiredVelocity. Peak speed and acceleration inside a segment
// are not bounded: a rest-to-rest quintic peaks at 1.875 times its average
// speed.
func Plan(waypoints []r3.Vector, boundary Boundary, desiredVelocity, desiredAcceleration float64) (*Trajectory, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}

	n := len(waypoints) - 1
	segVel := make([]r3.Vector, n+1)
	segAcc := make([]r3.Vector, n+1)
	segVel[0], segAcc[0] = boundary.V0, boundary.A0
	segVel[n], segAcc[n] = boundary.Vf, boundary.Af

	// Intermediate waypoint derivatives are estimated from the average of
	// the adjacent segment directions scaled to desiredVelocity — a
	// Catmull-Rom-style heuristic that keeps the path from kinking sharply
	// at interior waypoints while staying well inside the quintic's degrees
	// of freedom.
	for i := 1; i < n; i++ {
		prev := waypoints[i].Sub(waypoints[i-1])
		next := waypoints[i+1].Sub(waypoints[i])
		dir := prev.Normalize().Add(next.Normalize())
		if dir.Norm() > 1e-9 {
			segVel[i] = dir.Normalize().Mul(desiredVelocity)
		}
		segAcc[i] = r3.Vector{}
	}

	trajectory := &Trajectory{segments: make([]quintic, n)}
	for i := 0; i < n; i++ {
		dist := waypoints[i+1].Sub(waypoints[i]).Norm()
		dur := segmentDuration(dist, desiredVelocity, desiredAcceleration)

		seg := quintic{dur: dur}
		for axis := 0; axis < 3; axis++ {
			p0 := axisOf(waypoints[i], axis)
			p1 := axisOf(waypoints[i+1], axis)
			v0 := axisOf(segVel[i], axis)
			v1 := axisOf(segVel[i+1], axis)
			a0 := axisOf(segAcc[i], axis)
			a1 := axisOf(segAcc[i+1], axis)

			coeffs, err := solveQuintic(dur, p0, v0, a0, p1, v1, a1)
			if err != nil {
				return nil, err
			}
			seg.coeffs[axis] = coeffs
		}
		trajectory.segments[i] = seg
		trajectory.total += dur
	}
	return trajectory, nil
}

func segmentDuration(dist, desiredVelocity, desiredAcceleration float64) float64 {
	if dist < 1e-9 {
		return 0.1
	}
	cruise := dist / desiredVelocity
	rampLimited := math.Sqrt(2 * dist / desiredAcceleration)
	return math.Max(cruise, rampLimited)
}

func axisOf(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// solveQuintic solves for coefficients c0..c5 of p(t) = sum c_k t^k over
// [0, dur] satisfying p(0)=p0, p'(0)=v0, p''(0)=a0, p(dur)=p1, p'(dur)=v1,
// p''(dur)=a1.
func solveQuintic(dur, p0, v0, a0, p1, v1, a1 float64) ([6]float64, error) {
	var out [6]float64
	if dur < 1e-9 {
		out[0] = p1
		return out, nil
	}

	t := dur
	rows := [][]float64{
		{1, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0},
		{0, 0, 2, 0, 0, 0},
		{1, t, t * t, t * t * t, t * t * t * t, t * t * t * t * t},
		{0, 1, 2 * t, 3 * t * t, 4 * t * t * t, 5 * t * t * t * t},
		{0, 0, 2, 6 * t, 12 * t * t, 20 * t * t * t},
	}
	flat := make([]float64, 0, 36)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	a := mat.NewDense(6, 6, flat)
	b := mat.NewVecDense(6, []float64{p0, v0, a0, p1, v1, a1})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return out, err
	}
	for i := 0; i < 6; i++ {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Duration returns the trajectory's total time span.
func (tr *Trajectory) Duration() float64 {
	return tr.total
}

func (tr *Trajectory) locate(t float64) (quintic, float64) {
	if t < 0 {
		t = 0
	}
	for i, seg := range tr.segments {
		if t <= seg.dur || i == len(tr.segments)-1 {
			if t > seg.dur {
				t = seg.dur
			}
			return seg, t
		}
		t -= seg.dur
	}
	last := tr.segments[len(tr.segments)-1]
	return last, last.dur
}

// PositionAt evaluates the trajectory's position at time t, clamped to
// [0, Duration()].
func (tr *Trajectory) PositionAt(t float64) r3.Vector {
	seg, local := tr.locate(t)
	return r3.Vector{
		X: evalPoly(seg.coeffs[0], local, 0),
		Y: evalPoly(seg.coeffs[1], local, 0),
		Z: evalPoly(seg.coeffs[2], local, 0),
	}
}

// VelocityAt evaluates the trajectory's velocity at time t.
func (tr *Trajectory) VelocityAt(t float64) r3.Vector {
	seg, local := tr.locate(t)
	return r3.Vector{
		X: evalPoly(seg.coeffs[0], local, 1),
		Y: evalPoly(seg.coeffs[1], local, 1),
		Z: evalPoly(seg.coeffs[2], local, 1),
	}
}

// AccelerationAt evaluates the trajectory's acceleration at time t.
func (tr *Trajectory) AccelerationAt(t float64) r3.Vector {
	seg, local := tr.locate(t)
	return r3.Vector{
		X: evalPoly(seg.coeffs[0], local, 2),
		Y: evalPoly(seg.coeffs[1], local, 2),
		Z: evalPoly(seg.coeffs[2], local, 2),
	}
}

// evalPoly evaluates the derivOrder-th derivative of sum coeffs[k]*t^k at t.
func evalPoly(coeffs [6]float64, t float64, derivOrder int) float64 {
	sum := 0.0
	for k := derivOrder; k < len(coeffs); k++ {
		coeff := coeffs[k]
		mult := 1.0
		for d := 0; d < derivOrder; d++ {
			mult *= float64(k - d)
		}
		sum += coeff * mult * math.Pow(t, float64(k-derivOrder))
	}
	return sum
}

// Sample is a single time-stamped trajectory point.
type Sample struct {
	T float64
	P r3.Vector
	V r3.Vector
	A r3.Vector
}

// SampleAt returns samples from [0, Duration()] at step dt, always
// including the final sample at Duration().
func (tr *Trajectory) SampleAt(dt float64) []Sample {
	if dt <= 0 {
		dt = 0.1
	}
	var out []Sample
	for t := 0.0; t < tr.total; t += dt {
		out = append(out, Sample{T: t, P: tr.PositionAt(t), V: tr.VelocityAt(t), A: tr.AccelerationAt(t)})
	}
	out = append(out, Sample{T: tr.total, P: tr.PositionAt(tr.total), V: tr.VelocityAt(tr.total), A: tr.AccelerationAt(tr.total)})
	return out
}
