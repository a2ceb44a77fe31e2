package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEulerRoundTrip(t *testing.T) {
	for _, e := range []EulerAngles{
		{},
		{X: 0.1, Y: 0.2, Z: 0.3},
		{X: -1.2, Y: 2.9, Z: -0.4},
		{X: 1.5, Y: -3.0, Z: 3.0},
		{X: -0.7, Y: 0, Z: math.Pi / 2},
	} {
		q := EulerToQuaternion(e)
		assert.InDelta(t, 1, quat.Abs(q), 1e-12)

		got := QuaternionToEuler(q)
		assert.InDelta(t, e.X, got.X, 1e-9, "x of %+v", e)
		assert.InDelta(t, e.Y, got.Y, 1e-9, "y of %+v", e)
		assert.InDelta(t, e.Z, got.Z, 1e-9, "z of %+v", e)

		assert.True(t, SameRotation(q, EulerToQuaternion(got), 1e-9))
	}
}

func TestQuaternionRoundTripThroughEuler(t *testing.T) {
	for _, p := range samplePoses() {
		q := Normalize(p.Rotation)
		e := QuaternionToEuler(q)
		if math.Abs(math.Abs(e.X)-math.Pi/2) < 1e-6 {
			continue
		}
		assert.True(t, SameRotation(q, EulerToQuaternion(e), 1e-9), "q=%v e=%+v", q, e)
	}
}

func TestQuaternionToEulerSouthPole(t *testing.T) {
	// -90 degrees about x gives zAxisY = +0.5.
	q := EulerToQuaternion(EulerAngles{X: -math.Pi / 2})
	zAxisY := q.Jmag*q.Kmag - q.Imag*q.Real
	assert.Greater(t, zAxisY, gimbalLimit)

	got := QuaternionToEuler(q)
	assert.Equal(t, -math.Pi/2, got.X)
	assert.Equal(t, 0.0, got.Z)
	assert.Equal(t, 2*math.Atan2(q.Jmag, q.Real), got.Y)
}

func TestQuaternionToEulerNorthPole(t *testing.T) {
	q := EulerToQuaternion(EulerAngles{X: math.Pi / 2})
	zAxisY := q.Jmag*q.Kmag - q.Imag*q.Real
	assert.Less(t, zAxisY, -gimbalLimit)

	got := QuaternionToEuler(q)
	assert.Equal(t, math.Pi/2, got.X)
	assert.Equal(t, 0.0, got.Z)
}

func TestQuaternionToEulerPoleDropsRoll(t *testing.T) {
	// At the pole yaw and roll rotate about the same axis, so the roll
	// component is folded into yaw and cannot be recovered.
	a := EulerToQuaternion(EulerAngles{X: -math.Pi / 2, Y: 0.4, Z: 0.6})
	b := EulerToQuaternion(EulerAngles{X: -math.Pi / 2, Y: 1.0, Z: 0})

	ea, eb := QuaternionToEuler(a), QuaternionToEuler(b)
	assert.Equal(t, 0.0, ea.Z)
	assert.Equal(t, 0.0, eb.Z)
	assert.InDelta(t, eb.Y, ea.Y, 1e-9)
}

func TestYawPitchRoll(t *testing.T) {
	yaw, pitch, roll := YawPitchRoll(IdentityQuaternion)
	assert.Equal(t, 0.0, yaw)
	assert.Equal(t, 0.0, pitch)
	assert.Equal(t, 0.0, roll)

	q := quat.Number(r3.NewRotation(0.8, r3.Vec{Z: 1}))
	yaw, pitch, roll = YawPitchRoll(q)
	assert.InDelta(t, 0.8, yaw, 1e-12)
	assert.InDelta(t, 0, pitch, 1e-12)
	assert.InDelta(t, 0, roll, 1e-12)

	// Unnormalized input gives the same angles.
	yaw2, _, _ := YawPitchRoll(Quaternion(3*q.Real, 0, 0, 3*q.Kmag))
	assert.InDelta(t, yaw, yaw2, 1e-12)
}

func TestYawPitchRollMatchesAxisRotation(t *testing.T) {
	q := Quaternion(math.Cos(0.15), math.Sin(0.15), 0, 0)
	yaw, pitch, roll := YawPitchRoll(q)
	assert.InDelta(t, 0, yaw, 1e-12)
	assert.InDelta(t, 0, pitch, 1e-12)
	assert.InDelta(t, 0.3, roll, 1e-12)
}
