package bsplinetraj

import (
	"errors"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/optimize"

	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
)

// ErrInfeasible is returned by Optimize when the descent produces no result
// at all, or when a control point of the optimized spline still lies in
// inflated occupancy. The final cost value itself is not checked.
var ErrInfeasible = errors.New("bsplinetraj: optimizer failed to reach a feasible trajectory")

// Boundary mirrors polytraj.Boundary; kept as a distinct type so this
// package has no dependency on polytraj, per spec.md §9's note that
// planners should not share ownership of each other's state.
type Boundary struct {
	V0, Vf r3.Vector
	A0, Af r3.Vector
}

// fixedEnd is the number of control points at each end of the spline fixed
// by the boundary conditions rather than free for optimization — three per
// end, since a cubic B-spline's position/velocity/acceleration at an
// endpoint are each determined by exactly three neighboring control points
// (derived in spline.go's basis functions evaluated at the segment
// boundary).
const fixedEnd = 3

// Optimizer refines a uniform cubic B-spline's control points against the
// occupancy map and a snapshot of dynamic obstacles.
type Optimizer struct {
	mu sync.Mutex

	occMap              *occupancy.Map
	desiredVelocity     float64
	desiredAcceleration float64
	clearanceRadius     float64
	dynamicSafetyMargin float64
	iterationCap        int

	spline   Spline
	boundary Boundary
	dynamic  []obstacle.Dynamic
}

// NewOptimizer builds an Optimizer bound to m, enforcing desiredVelocity
// and desiredAcceleration as hard feasibility limits.
func NewOptimizer(m *occupancy.Map, desiredVelocity, desiredAcceleration float64) *Optimizer {
	return &Optimizer{
		occMap:              m,
		desiredVelocity:      desiredVelocity,
		desiredAcceleration:  desiredAcceleration,
		clearanceRadius:      m.Resolution() * 4,
		dynamicSafetyMargin:  0.5,
		iterationCap:         200,
	}
}

// InitKnotSpacing returns a reasonable initial knot spacing Δ₀: the map
// resolution scaled so a vehicle at desiredVelocity crosses several voxels
// per knot, per spec.md §4.5.
func (o *Optimizer) InitKnotSpacing() float64 {
	res := o.occMap.Resolution()
	delta := 4 * res / math.Max(o.desiredVelocity, 1e-3)
	if delta < 0.05 {
		delta = 0.05
	}
	return delta
}

// CheckInputSpacing validates that consecutive samples of path are within
// the distance a vehicle at desiredVelocity could cover in one knot
// interval Δ. If any gap is too large, it returns ok=false so the caller
// can shrink Δ and retry, per spec.md §4.5.
func (o *Optimizer) CheckInputSpacing(path []r3.Vector, delta float64) (ok bool, adjusted []r3.Vector, newDelta float64, tFinal float64) {
	maxStep := o.desiredVelocity * delta
	for i := 1; i < len(path); i++ {
		if path[i].Sub(path[i-1]).Norm() > maxStep*1.001 {
			return false, path, delta, 0
		}
	}
	tFinal = float64(len(path)-1) * delta
	return true, path, delta, tFinal
}

// SetInput seeds control points from path (already validated by
// CheckInputSpacing to be spaced at most desiredVelocity*Δ apart), clamping
// the first and last fixedEnd control points to satisfy boundary, per
// spec.md §4.5 ("set_input(path, boundary, Δ)").
func (o *Optimizer) SetInput(path []r3.Vector, boundary Boundary, delta float64) error {
	if len(path) < 2 {
		return errors.New("bsplinetraj: input path needs at least two points")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.boundary = boundary

	interior := path
	controlPoints := make([]r3.Vector, 0, len(interior)+2*fixedEnd)
	controlPoints = append(controlPoints, clampedStart(interior[0], boundary.V0, boundary.A0, delta)...)
	if len(interior) > 2 {
		controlPoints = append(controlPoints, interior[1:len(interior)-1]...)
	}
	controlPoints = append(controlPoints, clampedEnd(interior[len(interior)-1], boundary.Vf, boundary.Af, delta)...)

	o.spline = Spline{ControlPoints: controlPoints, Delta: delta, Rho: 1}
	return nil
}

// clampedStart returns the first three control points implied by position
// p0, velocity v0, and acceleration a0 at spline time 0 (ρ=1), derived from
// the uniform cubic B-spline basis evaluated at the segment start.
func clampedStart(p0, v0, a0 r3.Vector, delta float64) []r3.Vector {
	d2over3 := delta * delta / 3
	d2over6 := delta * delta / 6
	q0 := p0.Sub(v0.Mul(delta)).Add(a0.Mul(d2over3))
	q1 := p0.Sub(a0.Mul(d2over6))
	q2 := p0.Add(v0.Mul(delta)).Add(a0.Mul(d2over3))
	return []r3.Vector{q0, q1, q2}
}

// clampedEnd returns the last three control points implied by position pN,
// velocity vf, and acceleration af at spline time T — the same closed form
// as clampedStart, since the basis is symmetric at a segment boundary.
func clampedEnd(pN, vf, af r3.Vector, delta float64) []r3.Vector {
	return clampedStart(pN, vf, af, delta)
}

// SetDynamicObstacles binds the moving-obstacle set for the next
// optimization, per spec.md §4.5.
func (o *Optimizer) SetDynamicObstacles(obstacles []obstacle.Dynamic) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dynamic = append([]obstacle.Dynamic(nil), obstacles...)
}

// Optimize refines the free (non-boundary-clamped) control points by
// descending the composite cost defined in cost.go, then computes the
// linear re-parameterization factor ρ. It returns ErrInfeasible if the
// resulting spline still violates the inflated-occupancy invariant after
// optimization.
func (o *Optimizer) Optimize() (*Spline, error) {
	o.mu.Lock()
	spline := Spline{
		ControlPoints: append([]r3.Vector(nil), o.spline.ControlPoints...),
		Delta:         o.spline.Delta,
		Rho:           o.spline.Rho,
	}
	dynamic := append([]obstacle.Dynamic(nil), o.dynamic...)
	occMap := o.occMap
	clearanceRadius := o.clearanceRadius
	dynamicSafetyMargin := o.dynamicSafetyMargin
	iterationCap := o.iterationCap
	desiredVelocity := o.desiredVelocity
	desiredAcceleration := o.desiredAcceleration
	o.mu.Unlock()

	n := len(spline.ControlPoints)
	if n <= 2*fixedEnd {
		// Nothing free to optimize; the boundary-clamped points are the
		// entire spline.
		spline.Rho = linearFactor(&spline, desiredVelocity, desiredAcceleration)
		o.storeResult(spline)
		return &spline, nil
	}

	freeCount := n - 2*fixedEnd
	x0 := make([]float64, 3*freeCount)
	for i := 0; i < freeCount; i++ {
		p := spline.ControlPoints[fixedEnd+i]
		x0[3*i], x0[3*i+1], x0[3*i+2] = p.X, p.Y, p.Z
	}

	evalCost := func(x []float64) float64 {
		return compositeCost(&spline, x, occMap, dynamic, clearanceRadius, dynamicSafetyMargin, desiredVelocity, desiredAcceleration)
	}

	problem := optimize.Problem{
		Func: evalCost,
		Grad: func(grad, x []float64) {
			centralDifferenceGradient(grad, x, evalCost, 1e-4)
		},
	}

	settings := &optimize.Settings{
		MajorIterations: iterationCap,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		return nil, ErrInfeasible
	}

	best := x0
	if result != nil {
		best = result.X
	}
	applyFreeControlPoints(&spline, best)

	spline.Rho = linearFactor(&spline, desiredVelocity, desiredAcceleration)

	if !respectsInflatedOccupancy(&spline, occMap) {
		return nil, ErrInfeasible
	}
	o.storeResult(spline)
	return &spline, nil
}

func (o *Optimizer) storeResult(spline Spline) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spline = spline
}

func applyFreeControlPoints(spline *Spline, x []float64) {
	freeCount := len(x) / 3
	for i := 0; i < freeCount; i++ {
		spline.ControlPoints[fixedEnd+i] = r3.Vector{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
	}
}

func respectsInflatedOccupancy(spline *Spline, m *occupancy.Map) bool {
	for _, p := range spline.ControlPoints {
		if m.InflatedOccupied(p) == occupancy.InflatedOccupied {
			return false
		}
	}
	return true
}

// LinearFactor returns the most recently computed ρ. It is primarily
// exposed for testing; callers normally read Rho off the *Spline returned
// by Optimize.
func (o *Optimizer) LinearFactor() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.spline.Rho
}

// linearFactor scans the spline's unscaled derivative norms and returns the
// largest ρ ∈ (0,1] such that ‖v_spline·ρ‖ ≤ v_d and ‖a_spline·ρ²‖ ≤ a_d
// everywhere, per spec.md §4.5.
func linearFactor(spline *Spline, desiredVelocity, desiredAcceleration float64) float64 {
	duration := spline.Duration()
	if duration <= 0 {
		return 1
	}

	maxV, maxA := 0.0, 0.0
	const samples = 200
	for i := 0; i <= samples; i++ {
		u := duration * float64(i) / float64(samples)
		if v := spline.splineVelocityAt(u).Norm(); v > maxV {
			maxV = v
		}
		if a := spline.splineAccelerationAt(u).Norm(); a > maxA {
			maxA = a
		}
	}

	rho := 1.0
	if maxV > 1e-9 {
		rho = math.Min(rho, desiredVelocity/maxV)
	}
	if maxA > 1e-9 {
		rho = math.Min(rho, math.Sqrt(desiredAcceleration/maxA))
	}
	if rho > 1 {
		rho = 1
	}
	if rho <= 0 {
		rho = 1e-3
	}
	return rho
}

func centralDifferenceGradient(grad, x []float64, f func([]float64) float64, h float64) {
	probe := make([]float64, len(x))
	copy(probe, x)
	for i := range x {
		orig := probe[i]
		probe[i] = orig + h
		fPlus := f(probe)
		probe[i] = orig - h
		fMinus := f(probe)
		probe[i] = orig
		grad[i] = (fPlus - fMinus) / (2 * h)
	}
}
