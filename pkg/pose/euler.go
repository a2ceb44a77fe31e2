package pose

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalLimit bounds zAxisY = qy·qz − qx·qw before QuaternionToEuler
// switches to the pole branches.
const gimbalLimit = 0.4999999

// EulerAngles holds Tait-Bryan angles in radians applied in YXZ order:
// X is pitch, Y is yaw and Z is roll.
type EulerAngles struct {
	X, Y, Z float64
}

// QuaternionToEuler converts q to YXZ Euler angles.
//
// Near the poles (|zAxisY| > 0.4999999) pitch is pinned to ±π/2, roll is
// set to 0 and the whole remaining rotation is reported as yaw. Roll
// information is lost there: many quaternions map to the same angles, so
// EulerToQuaternion only inverts this away from the poles.
func QuaternionToEuler(q quat.Number) EulerAngles {
	qw, qx, qy, qz := q.Real, q.Imag, q.Jmag, q.Kmag

	sqx := qx * qx
	sqy := qy * qy
	sqz := qz * qz
	sqw := qw * qw

	zAxisY := qy*qz - qx*qw

	switch {
	case zAxisY < -gimbalLimit:
		return EulerAngles{X: math.Pi / 2, Y: 2 * math.Atan2(qy, qw), Z: 0}
	case zAxisY > gimbalLimit:
		return EulerAngles{X: -math.Pi / 2, Y: 2 * math.Atan2(qy, qw), Z: 0}
	}
	return EulerAngles{
		X: math.Asin(-2.0 * (qz*qy - qx*qw)),
		Y: math.Atan2(2.0*(qz*qx+qy*qw), sqz-sqx-sqy+sqw),
		Z: math.Atan2(2.0*(qx*qy+qz*qw), -sqz-sqx+sqy+sqw),
	}
}

// EulerToQuaternion converts YXZ Euler angles to a unit quaternion.
func EulerToQuaternion(e EulerAngles) quat.Number {
	sinRoll, cosRoll := math.Sincos(e.Z * 0.5)
	sinPitch, cosPitch := math.Sincos(e.X * 0.5)
	sinYaw, cosYaw := math.Sincos(e.Y * 0.5)

	return quat.Number{
		Real: cosYaw*cosPitch*cosRoll + sinYaw*sinPitch*sinRoll,
		Imag: cosYaw*sinPitch*cosRoll + sinYaw*cosPitch*sinRoll,
		Jmag: sinYaw*cosPitch*cosRoll - cosYaw*sinPitch*sinRoll,
		Kmag: cosYaw*cosPitch*sinRoll - sinYaw*sinPitch*cosRoll,
	}
}

// YawPitchRoll returns the intrinsic z-y'-x'' angles of the normalized q.
// Yaw is the rotation about z, 0 when the x axis is unchanged.
func YawPitchRoll(q quat.Number) (yaw, pitch, roll float64) {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	yaw = math.Atan2(2*(w*z-x*y), 1-2*(y*y+z*z))
	pitch = math.Asin(2 * (w*y + z*x))
	roll = math.Atan2(2*(w*x-y*z), 1-2*(x*x+y*y))
	return
}
