// Package vehiclestate implements the Vehicle State Estimator (C7 in
// spec.md §4.7): it converts a stream of odometry snapshots into
// world-frame position, velocity, and acceleration by rotating the
// body-frame twist into world frame and backward-differencing velocity.
//
// Grounded on spatialmath.Rotate's quaternion-sandwich-product idiom for
// the body-to-world rotation, mirroring the teacher's orientation.go
// pattern generalized away from the referenceframe-specific API surface.
package vehiclestate

import (
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/spatialmath"
)

// Odometry is a single odometry snapshot, per spec.md §3: pose,
// body-frame linear velocity, and a monotonically non-decreasing
// timestamp.
type Odometry struct {
	Pose             spatialmath.Pose
	BodyFrameVelocity r3.Vector
	Stamp            time.Time
}

// State is the world-frame vehicle state produced from the most recent
// odometry, per spec.md §3.
type State struct {
	Position     r3.Vector
	Velocity     r3.Vector
	Acceleration r3.Vector
	Stamp        time.Time
}

// Estimator runs the backward-difference pipeline, callable at the ~30 Hz
// rate spec.md §5 assigns to the state estimator.
type Estimator struct {
	mu       sync.Mutex
	hasPrev  bool
	prev     State
}

// NewEstimator returns an Estimator with no prior sample.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Update folds in a new odometry snapshot and returns the resulting
// world-frame state. Acceleration is undefined (treated as zero) on the
// first sample, and whenever the elapsed time since the previous sample is
// non-positive (out-of-order or duplicate stamps are defensively ignored
// rather than dividing by zero), per spec.md §3.
func (e *Estimator) Update(odom Odometry) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	worldVelocity := spatialmath.Rotate(odom.Pose.Orientation, odom.BodyFrameVelocity)

	state := State{
		Position: odom.Pose.Point,
		Velocity: worldVelocity,
		Stamp:    odom.Stamp,
	}

	if e.hasPrev {
		dt := odom.Stamp.Sub(e.prev.Stamp).Seconds()
		if dt > 0 {
			state.Acceleration = worldVelocity.Sub(e.prev.Velocity).Mul(1 / dt)
		}
	}

	e.prev = state
	e.hasPrev = true
	return state
}

// Latest returns the most recently computed state and whether one exists.
func (e *Estimator) Latest() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prev, e.hasPrev
}
