package kitti

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mengseeker/kitticonv/pkg/pose"
)

var testIntrinsics = CameraIntrinsics{Fx: 1000, Fy: 1000, Cx: 960, Cy: 540}

func TestNewCalibrationScenario(t *testing.T) {
	camera := pose.New(pose.IdentityQuaternion, r3.Vec{X: 1})
	c, err := NewCalibration(testIntrinsics, camera, pose.Identity())
	require.NoError(t, err)

	assert.True(t, mat.Equal(mat.NewDense(3, 4, []float64{
		1000, 0, 960, 0,
		0, 1000, 540, 0,
		0, 0, 1, 0,
	}), c.P2))
	assert.True(t, mat.Equal(mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}), c.R0Rect))
	assert.True(t, mat.EqualApprox(mat.NewDense(3, 4, []float64{
		1, 0, 0, -1,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}), c.TrVeloToCam, 1e-12))

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "P2: 1000.0 0.0 960.0 0.0 0.0 1000.0 540.0 0.0 0.0 0.0 1.0 0.0", lines[0])
	assert.Equal(t, "R0_rect: 1.0 0.0 0.0 0.0 1.0 0.0 0.0 0.0 1.0", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Tr_velo_to_cam: 1.0 "), lines[2])
}

func TestNewCalibrationShapes(t *testing.T) {
	camera := pose.New(pose.Normalize(pose.Quaternion(0.3, -0.2, 0.9, 0.1)), r3.Vec{X: 3, Y: -1, Z: 1.5})
	reference := pose.New(quat.Number(r3.NewRotation(0.7, r3.Vec{Z: 1})), r3.Vec{X: 10, Y: 20})
	c, err := NewCalibration(testIntrinsics, camera, reference)
	require.NoError(t, err)

	r, cols := c.P2.Dims()
	assert.Equal(t, [2]int{3, 4}, [2]int{r, cols})
	r, cols = c.R0Rect.Dims()
	assert.Equal(t, [2]int{3, 3}, [2]int{r, cols})
	r, cols = c.TrVeloToCam.Dims()
	assert.Equal(t, [2]int{3, 4}, [2]int{r, cols})

	// The rotation block of Tr is orthonormal with determinant one.
	rot := c.TrVeloToCam.Slice(0, 3, 0, 3)
	assert.InDelta(t, 1, mat.Det(rot), 1e-9)

	// Tr maps a point of the sensor frame to the same world point seen from the camera.
	p := r3.Vec{X: 1, Y: -2, Z: 0.5}
	want := camera.Inverse().TransformPoint(reference.TransformPoint(p))
	var got mat.VecDense
	got.MulVec(c.TrVeloToCam, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	assert.InDeltaSlice(t, []float64{want.X, want.Y, want.Z}, got.RawVector().Data, 1e-9)
}

func TestNewCalibrationInvalidIntrinsics(t *testing.T) {
	for _, in := range []CameraIntrinsics{
		{Fx: 0, Fy: 1000, Cx: 960, Cy: 540},
		{Fx: 1000, Fy: -1, Cx: 960, Cy: 540},
		{Fx: math.NaN(), Fy: 1000, Cx: 960, Cy: 540},
		{Fx: 1000, Fy: 1000, Cx: math.Inf(1), Cy: 540},
	} {
		_, err := NewCalibration(in, pose.Identity(), pose.Identity())
		assert.True(t, errors.Is(err, ErrInvalidIntrinsics), "%+v", in)
		assert.True(t, errors.Is(err, pose.ErrPrecondition), "%+v", in)
	}
}

func TestCalibrationFileRoundTrip(t *testing.T) {
	camera := pose.New(pose.Normalize(pose.Quaternion(0.5, 0.5, -0.5, 0.5)), r3.Vec{X: 0.2, Y: 1.7, Z: -0.05})
	c, err := NewCalibration(testIntrinsics, camera, pose.Identity())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "calib", "000.txt")
	require.NoError(t, c.WriteFile(path))

	got, err := ReadCalibration(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(c.P2, got.P2))
	assert.True(t, mat.Equal(c.R0Rect, got.R0Rect))
	assert.True(t, mat.Equal(c.TrVeloToCam, got.TrVeloToCam), "full precision must survive the text format")
}

func TestParseCalibrationMissingEntry(t *testing.T) {
	in := "P0: 1 0 0 0 0 1 0 0 0 0 1 0\n" +
		"P2: 1000.0 0.0 960.0 0.0 0.0 1000.0 540.0 0.0 0.0 0.0 1.0 0.0\n" +
		"R0_rect: 1.0 0.0 0.0 0.0 1.0 0.0 0.0 0.0 1.0\n"
	_, err := ParseCalibration(strings.NewReader(in))
	assert.True(t, errors.Is(err, ErrMissingCalibrationEntry))
	assert.Contains(t, err.Error(), LabelTrVeloToCam)
}

func TestParseCalibrationMalformed(t *testing.T) {
	_, err := ParseCalibration(strings.NewReader("P2 1 2 3\n"))
	assert.True(t, errors.Is(err, ErrInvalidCalibration))

	_, err = ParseCalibration(strings.NewReader("P2: 1 2 x\n"))
	assert.True(t, errors.Is(err, ErrInvalidCalibration))

	_, err = ParseCalibration(strings.NewReader("P2: 1 2 3\nR0_rect: 1 0 0 0 1 0 0 0 1\nTr_velo_to_cam: 1 0 0 0 0 1 0 0 0 0 1 0\n"))
	assert.True(t, errors.Is(err, ErrInvalidCalibration))
}

func TestFormatFloat(t *testing.T) {
	for v, want := range map[float64]string{
		1000:                    "1000.0",
		0:                       "0.0",
		-1:                      "-1.0",
		0.1:                     "0.1",
		1e-05:                   "1e-05",
		1.5e-05:                 "1.5e-05",
		0.0001:                  "0.0001",
		1e16:                    "1e+16",
		123456789012345.0:       "123456789012345.0",
		0.30000000000000004:     "0.30000000000000004",
		-0.26628620690449:       "-0.26628620690449",
		math.Inf(1):             "inf",
		math.Inf(-1):            "-inf",
		2.5866664556528294:      "2.5866664556528294",
		-1.2246467991473532e-16: "-1.2246467991473532e-16",
	} {
		assert.Equal(t, want, FormatFloat(v), "%v", v)
	}
	assert.Equal(t, "nan", FormatFloat(math.NaN()))
	assert.Equal(t, "-0.0", FormatFloat(math.Copysign(0, -1)))
}
