package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, math.Pi / 4, math.Pi / 2, -math.Pi / 3, math.Pi - 0.01} {
		q := YawQuaternion(yaw)
		test.That(t, Yaw(q), test.ShouldAlmostEqual, yaw, 1e-9)
	}
}

func TestRotateIdentity(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	got := Rotate(NewZeroOrientation(), v)
	test.That(t, got.X, test.ShouldAlmostEqual, v.X, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, v.Y, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, v.Z, 1e-9)
}

func TestRotateYaw90(t *testing.T) {
	q := YawQuaternion(math.Pi / 2)
	got := Rotate(q, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestAABBContains(t *testing.T) {
	box := NewAABB(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 2, Y: 2, Z: 2})
	test.That(t, box.Contains(r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldBeTrue)
	test.That(t, box.Contains(r3.Vector{X: 2.4, Y: 1, Z: 1}), test.ShouldBeFalse)
	test.That(t, box.Contains(r3.Vector{X: 1.9, Y: 1.9, Z: 1.9}), test.ShouldBeTrue)
}
