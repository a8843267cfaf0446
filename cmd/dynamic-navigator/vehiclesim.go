package main

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/executor"
	"github.com/windlass-robotics/navcore/spatialmath"
	"github.com/windlass-robotics/navcore/vehiclestate"
)

// vehicleSim stands in for the autopilot, odometry feed, and armed-state
// source this core normally plugs into (all out of scope per spec.md §1):
// it tracks the most recently commanded setpoint directly, the same
// idealized-tracking simplification the corpus's fake.* components use to
// stand up a runnable demo without real hardware.
type vehicleSim struct {
	mu       sync.Mutex
	pose     spatialmath.Pose
	velocity r3.Vector
}

func newVehicleSim(start r3.Vector) *vehicleSim {
	return &vehicleSim{pose: spatialmath.NewPose(start, spatialmath.NewZeroOrientation())}
}

// Armed always reports true: this simulator has no disarm switch to model.
func (v *vehicleSim) Armed() bool { return true }

func (v *vehicleSim) Yaw() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return spatialmath.Yaw(v.pose.Orientation)
}

func (v *vehicleSim) Position() r3.Vector {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose.Point
}

func (v *vehicleSim) Heading() r3.Vector {
	v.mu.Lock()
	defer v.mu.Unlock()
	return spatialmath.Rotate(v.pose.Orientation, r3.Vector{X: 1})
}

// SetSetpoint implements executor.ControllerSink by teleporting the
// simulated vehicle directly to the commanded setpoint.
func (v *vehicleSim) SetSetpoint(ctx context.Context, sp executor.Setpoint) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pose = spatialmath.NewPose(sp.Position, spatialmath.YawQuaternion(sp.Yaw))
	v.velocity = sp.Velocity
	return nil
}

// Odometry reports the simulator's current pose and body-frame velocity,
// consumed by vehiclestate.Estimator the same way a real odometry feed
// would be.
func (v *vehicleSim) Odometry(now time.Time) vehiclestate.Odometry {
	v.mu.Lock()
	defer v.mu.Unlock()
	bodyVelocity := spatialmath.Rotate(spatialmath.YawQuaternion(-spatialmath.Yaw(v.pose.Orientation)), v.velocity)
	return vehiclestate.Odometry{
		Pose:              v.pose,
		BodyFrameVelocity: bodyVelocity,
		Stamp:             now,
	}
}
