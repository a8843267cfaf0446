package bsplinetraj

import (
	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
)

const (
	weightSmoothness     = 1.0
	weightStaticClear    = 20.0
	weightDynamicClear   = 20.0
	weightFeasibility    = 10.0
)

// compositeCost evaluates the four terms of spec.md §4.5's optimization
// objective — smoothness, static clearance, dynamic clearance, and
// feasibility — against the spline that would result from overlaying the
// free control-point values x onto spline's boundary-clamped ends.
func compositeCost(
	spline *Spline,
	x []float64,
	occMap *occupancy.Map,
	dynamic []obstacle.Dynamic,
	clearanceRadius float64,
	dynamicSafetyMargin float64,
	desiredVelocity, desiredAcceleration float64,
) float64 {
	points := withFreeControlPoints(spline, x)

	cost := weightSmoothness * smoothnessCost(points)
	cost += weightStaticClear * staticClearanceCost(points, occMap, clearanceRadius)
	cost += weightDynamicClear * dynamicClearanceCost(points, spline.Delta, dynamic, dynamicSafetyMargin)
	cost += weightFeasibility * feasibilityCost(points, spline.Delta, desiredVelocity, desiredAcceleration)
	return cost
}

func withFreeControlPoints(spline *Spline, x []float64) []r3.Vector {
	points := make([]r3.Vector, len(spline.ControlPoints))
	copy(points, spline.ControlPoints)
	freeCount := len(x) / 3
	for i := 0; i < freeCount; i++ {
		points[fixedEnd+i] = r3.Vector{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
	}
	return points
}

// smoothnessCost is the sum of squared jerk of the control polygon,
// approximated by the third finite difference of consecutive control
// points, per spec.md §4.5.
func smoothnessCost(points []r3.Vector) float64 {
	sum := 0.0
	for i := 0; i+3 < len(points); i++ {
		jerk := points[i+3].Sub(points[i+2].Mul(3)).Sub(points[i+1].Mul(-3)).Sub(points[i])
		sum += jerk.Norm2()
	}
	return sum
}

// staticClearanceCost penalizes control points that lie within
// clearanceRadius of an occupied voxel, per spec.md §4.5.
func staticClearanceCost(points []r3.Vector, occMap *occupancy.Map, clearanceRadius float64) float64 {
	sum := 0.0
	for _, p := range points {
		dist, found := occMap.DistanceToNearestOccupied(p, clearanceRadius)
		if !found {
			continue
		}
		if violation := clearanceRadius - dist; violation > 0 {
			sum += violation * violation
		}
	}
	return sum
}

// dynamicClearanceCost applies a separating ellipsoidal penalty against
// each dynamic obstacle, propagated along the obstacle's velocity to the
// wall-clock time implied by each control point's knot index, per
// spec.md §4.5.
func dynamicClearanceCost(points []r3.Vector, delta float64, dynamic []obstacle.Dynamic, safetyMargin float64) float64 {
	if len(dynamic) == 0 {
		return 0
	}
	sum := 0.0
	for i, p := range points {
		t := float64(i) * delta
		for _, obs := range dynamic {
			predicted := obs.PredictedPosition(t)
			extent := obs.Extent
			if extent.X <= 1e-6 {
				extent.X = 0.3
			}
			if extent.Y <= 1e-6 {
				extent.Y = 0.3
			}
			if extent.Z <= 1e-6 {
				extent.Z = 0.3
			}
			diff := p.Sub(predicted)
			normalized := r3.Vector{
				X: diff.X / (extent.X + safetyMargin),
				Y: diff.Y / (extent.Y + safetyMargin),
				Z: diff.Z / (extent.Z + safetyMargin),
			}
			if violation := 1 - normalized.Norm(); violation > 0 {
				sum += violation * violation
			}
		}
	}
	return sum
}

// feasibilityCost penalizes control-polygon velocity/acceleration estimates
// (first/second finite differences, scaled by knot spacing) that exceed
// the desired velocity/acceleration bounds, per spec.md §4.5.
func feasibilityCost(points []r3.Vector, delta float64, desiredVelocity, desiredAcceleration float64) float64 {
	sum := 0.0
	for i := 0; i+1 < len(points); i++ {
		v := points[i+1].Sub(points[i]).Mul(1 / delta).Norm()
		if violation := v - desiredVelocity; violation > 0 {
			sum += violation * violation
		}
	}
	for i := 0; i+2 < len(points); i++ {
		a := points[i+2].Sub(points[i+1].Mul(2)).Add(points[i]).Mul(1 / (delta * delta)).Norm()
		if violation := a - desiredAcceleration; violation > 0 {
			sum += violation * violation
		}
	}
	return sum
}
