package pose

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const samplePoseJSON = `{"position": {"x": 2.5866664556528294, "y": 2.466240979290467, "z": 1.8213244045644146},` +
	` "heading": {"w": 0.6554122851680118, "x": -0.650630103896342, "y": 0.27605590080108616, "z": -0.26628620690449}}`

func samplePose(t *testing.T) Pose {
	t.Helper()
	var p Pose
	require.NoError(t, json.Unmarshal([]byte(samplePoseJSON), &p))
	return p
}

func samplePoses() []Pose {
	return []Pose{
		Identity(),
		New(Quaternion(0.6554122851680118, -0.650630103896342, 0.27605590080108616, -0.26628620690449),
			r3.Vec{X: 2.5866664556528294, Y: 2.466240979290467, Z: 1.8213244045644146}),
		New(Normalize(Quaternion(0.1, 0.7, -0.2, 0.4)), r3.Vec{X: -10, Y: 0.5, Z: 3}),
		New(Quaternion(0, 0, 0, 1), r3.Vec{X: 1, Y: 2, Z: 3}),
		New(Quaternion(0, 1, 0, 0), r3.Vec{Z: -4}),
		New(EulerToQuaternion(EulerAngles{X: 0.3, Y: -2.1, Z: 1.2}), r3.Vec{X: 100, Y: -200, Z: 0.25}),
	}
}

func TestPandasetPoseJSON(t *testing.T) {
	p := samplePose(t)
	assert.Equal(t, 0.6554122851680118, p.Rotation.Real)
	assert.Equal(t, -0.26628620690449, p.Rotation.Kmag)
	assert.Equal(t, 1.8213244045644146, p.Translation.Z)

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var got Pose
	require.NoError(t, json.Unmarshal(b, &got))
	assert.True(t, p.Equal(got), "json round trip must be lossless: %v != %v", p, got)
	assert.JSONEq(t, samplePoseJSON, string(b))
}

func TestFromMatrixRoundTrip(t *testing.T) {
	for _, p := range samplePoses() {
		got, err := FromMatrix(p.Matrix())
		require.NoError(t, err)
		assert.True(t, SameRotation(Normalize(p.Rotation), got.Rotation, 1e-9), "rotation %v != %v", p.Rotation, got.Rotation)
		assert.InDelta(t, p.Translation.X, got.Translation.X, 1e-12)
		assert.InDelta(t, p.Translation.Y, got.Translation.Y, 1e-12)
		assert.InDelta(t, p.Translation.Z, got.Translation.Z, 1e-12)
	}
}

func TestFromMatrixSample(t *testing.T) {
	p := samplePose(t)
	got, err := FromMatrix(p.Matrix())
	require.NoError(t, err)
	assert.True(t, p.AlmostEqual(got, 1e-9), "%v != %v", p, got)
}

func TestFromMatrixRejectsInvalidInput(t *testing.T) {
	_, err := FromMatrix(mat.NewDense(3, 4, nil))
	assert.True(t, errors.Is(err, ErrDimension))
	assert.True(t, errors.Is(err, ErrPrecondition))

	scaled := Identity().Matrix()
	scaled.Set(0, 0, 2)
	_, err = FromMatrix(scaled)
	assert.True(t, errors.Is(err, ErrNotRotation))

	reflection := Identity().Matrix()
	reflection.Set(2, 2, -1)
	_, err = FromMatrix(reflection)
	assert.True(t, errors.Is(err, ErrNotRotation))
}

func TestInverse(t *testing.T) {
	for _, p := range samplePoses() {
		unit := Compose(p, p.Inverse())
		assert.True(t, unit.AlmostEqual(Identity(), 1e-9), "p * p^-1 = %v", unit)

		unit = Compose(p.Inverse(), p)
		assert.True(t, unit.AlmostEqual(Identity(), 1e-9), "p^-1 * p = %v", unit)
	}
}

func TestComposeAssociative(t *testing.T) {
	poses := samplePoses()
	for _, a := range poses {
		for _, b := range poses {
			for _, c := range poses {
				left := Compose(Compose(a, b), c)
				right := Compose(a, Compose(b, c))
				assert.True(t, left.AlmostEqual(right, 1e-9), "(ab)c=%v a(bc)=%v", left, right)
			}
		}
	}
}

func TestComposeOrderMatters(t *testing.T) {
	a := New(EulerToQuaternion(EulerAngles{Y: math.Pi / 2}), r3.Vec{X: 1})
	b := New(EulerToQuaternion(EulerAngles{X: math.Pi / 2}), r3.Vec{Y: 1})
	assert.False(t, Compose(a, b).AlmostEqual(Compose(b, a), 1e-6))
}

func TestComposeMatchesMatrixProduct(t *testing.T) {
	poses := samplePoses()
	a, b := poses[1], poses[2]

	var want mat.Dense
	want.Mul(a.Matrix(), b.Matrix())
	assert.True(t, mat.EqualApprox(&want, Compose(a, b).Matrix(), 1e-9))
}

func TestTransformPoints(t *testing.T) {
	p := New(IdentityQuaternion, r3.Vec{X: 1, Y: 2, Z: 3})
	got, err := p.TransformPoints([][]float64{{0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}}, got)

	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, p.TransformPoint(r3.Vec{}))
}

func TestTransformPointsRotation(t *testing.T) {
	// 90 degrees about z maps x onto y.
	p := New(quat.Number(r3.NewRotation(math.Pi/2, r3.Vec{Z: 1})), r3.Vec{Z: 1})
	got, err := p.TransformPoints([][]float64{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 1}, got[0], 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, got[1], 1e-12)
}

func TestTransformPointsInverse(t *testing.T) {
	p := samplePoses()[2]
	in := [][]float64{{1, 2, 3}, {-4, 0.5, 9}, {0, 0, 0}}
	world, err := p.TransformPoints(in)
	require.NoError(t, err)
	local, err := p.Inverse().TransformPoints(world)
	require.NoError(t, err)
	for i := range in {
		assert.InDeltaSlice(t, in[i], local[i], 1e-9)
	}
}

func TestTransformPointsDimension(t *testing.T) {
	_, err := Identity().TransformPoints([][]float64{{1, 2, 3}, {1, 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimension))
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestEqualIsExact(t *testing.T) {
	p := samplePoses()[1]
	q := p
	assert.True(t, p.Equal(q))

	q.Translation.X = math.Nextafter(q.Translation.X, math.Inf(1))
	assert.False(t, p.Equal(q))
	assert.True(t, p.AlmostEqual(q, 1e-12))
}

func TestMatrixLayout(t *testing.T) {
	p := New(IdentityQuaternion, r3.Vec{X: 1, Y: 2, Z: 3})
	want := mat.NewDense(4, 4, []float64{
		1, 0, 0, 1,
		0, 1, 0, 2,
		0, 0, 1, 3,
		0, 0, 0, 1,
	})
	assert.True(t, mat.Equal(want, p.Matrix()))
}

func TestRotationMatrixNormalizes(t *testing.T) {
	q := Quaternion(2, 0, 0, 0)
	assert.True(t, mat.EqualApprox(RotationMatrix(q), RotationMatrix(IdentityQuaternion), 1e-15))
}
