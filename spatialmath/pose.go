// Package spatialmath provides the small set of vector and orientation
// primitives the navigation core shares across components: positions and
// velocities as r3.Vector, orientation as a unit quaternion, and the axis-
// aligned boxes used for map bounds and obstacle extent.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position plus orientation in the world frame, per spec.md §3.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroOrientation returns a unit quaternion representing no rotation.
func NewZeroOrientation() quat.Number {
	return quat.Number{Real: 1}
}

// NewPose returns a Pose at point with orientation.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	return Pose{Point: point, Orientation: orientation}
}

// Yaw extracts the heading angle (rotation about +Z) from a unit quaternion,
// per spec.md §3 ("Yaw is extracted when needed").
func Yaw(q quat.Number) float64 {
	siny := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosy := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(siny, cosy)
}

// YawQuaternion returns the unit quaternion representing a pure rotation of
// yaw radians about +Z.
func YawQuaternion(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}

// Rotate applies q's rotation to the vector v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// QuaternionAlmostEqual reports whether q1 and q2 represent approximately
// the same rotation, to within tol.
func QuaternionAlmostEqual(q1, q2 quat.Number, tol float64) bool {
	diff := quat.Abs(quat.Sub(q1, q2))
	sum := quat.Abs(quat.Add(q1, q2))
	return diff < tol || sum < tol
}
