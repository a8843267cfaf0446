package navcore

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/windlass-robotics/navcore/spatialmath"
)

func TestGoalStoreCurrentUnsetInitially(t *testing.T) {
	var s goalStore
	_, ok := s.Current()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, s.Epoch(), test.ShouldEqual, uint64(0))
}

func TestGoalStoreSetAdvancesEpoch(t *testing.T) {
	var s goalStore
	g := Goal{Pose: spatialmath.NewPose(r3.Vector{X: 1}, spatialmath.NewZeroOrientation())}
	epoch1 := s.Set(g)
	test.That(t, epoch1, test.ShouldEqual, uint64(1))

	got, ok := s.Current()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Pose.Point, test.ShouldResemble, r3.Vector{X: 1})

	epoch2 := s.Set(g)
	test.That(t, epoch2, test.ShouldEqual, uint64(2))
	test.That(t, s.Epoch(), test.ShouldEqual, uint64(2))
}
