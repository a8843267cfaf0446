package vehiclestate

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/windlass-robotics/navcore/spatialmath"
)

func TestFirstSampleHasZeroAcceleration(t *testing.T) {
	e := NewEstimator()
	state := e.Update(Odometry{
		Pose:              spatialmath.NewPose(r3.Vector{X: 1, Y: 0, Z: 1}, spatialmath.NewZeroOrientation()),
		BodyFrameVelocity: r3.Vector{X: 1, Y: 0, Z: 0},
		Stamp:             time.Unix(0, 0),
	})
	test.That(t, state.Acceleration, test.ShouldResemble, r3.Vector{})
}

func TestBackwardDifferenceAcceleration(t *testing.T) {
	e := NewEstimator()
	e.Update(Odometry{
		Pose:              spatialmath.NewPose(r3.Vector{X: 0, Y: 0, Z: 1}, spatialmath.NewZeroOrientation()),
		BodyFrameVelocity: r3.Vector{X: 0, Y: 0, Z: 0},
		Stamp:             time.Unix(0, 0),
	})
	state := e.Update(Odometry{
		Pose:              spatialmath.NewPose(r3.Vector{X: 1, Y: 0, Z: 1}, spatialmath.NewZeroOrientation()),
		BodyFrameVelocity: r3.Vector{X: 2, Y: 0, Z: 0},
		Stamp:             time.Unix(1, 0),
	})
	test.That(t, state.Acceleration.X, test.ShouldAlmostEqual, 2.0, 1e-9)
}

func TestWorldVelocityRotatesByOrientation(t *testing.T) {
	e := NewEstimator()
	yawed := spatialmath.NewPose(r3.Vector{}, spatialmath.YawQuaternion(1.5707963267948966))
	state := e.Update(Odometry{
		Pose:              yawed,
		BodyFrameVelocity: r3.Vector{X: 1, Y: 0, Z: 0},
		Stamp:             time.Unix(0, 0),
	})
	test.That(t, state.Velocity.X, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, state.Velocity.Y, test.ShouldAlmostEqual, 1, 1e-6)
}
