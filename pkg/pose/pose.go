// Package pose implements SE(3) rigid transforms built from a rotation
// quaternion and a translation vector.
package pose

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose maps points from a local frame into a reference frame: for a point p
// given in local coordinates, p.TransformPoint(p) is p in reference coordinates.
//
// Pose is a value type. Every operation returns a new Pose.
type Pose struct {
	Rotation    quat.Number
	Translation r3.Vec
}

// New returns the pose with rotation q and translation t.
func New(q quat.Number, t r3.Vec) Pose {
	return Pose{Rotation: q, Translation: t}
}

// Identity returns the pose with unit rotation and zero translation.
func Identity() Pose {
	return Pose{Rotation: IdentityQuaternion}
}

// Compose returns the pose that applies b and then a.
func Compose(a, b Pose) Pose {
	return a.Mul(b)
}

// Mul left-multiplies o by p, so the result maps o's local frame into p's
// reference frame. Quaternion products do not commute.
func (p Pose) Mul(o Pose) Pose {
	return Pose{
		Rotation:    quat.Mul(p.Rotation, o.Rotation),
		Translation: r3.Add(Rotate(p.Rotation, o.Translation), p.Translation),
	}
}

// Inverse returns the pose mapping the reference frame back into the local frame.
func (p Pose) Inverse() Pose {
	qinv := Inv(p.Rotation)
	return Pose{
		Rotation:    qinv,
		Translation: Rotate(qinv, r3.Scale(-1, p.Translation)),
	}
}

// RotationMatrix returns the 3x3 rotation part of the pose.
func (p Pose) RotationMatrix() *mat.Dense {
	return RotationMatrix(p.Rotation)
}

// Matrix returns the 4x4 homogeneous matrix [R t; 0 1].
func (p Pose) Matrix() *mat.Dense {
	r := p.RotationMatrix()
	m := mat.NewDense(4, 4, nil)
	m.Slice(0, 3, 0, 3).(*mat.Dense).Copy(r)
	m.Set(0, 3, p.Translation.X)
	m.Set(1, 3, p.Translation.Y)
	m.Set(2, 3, p.Translation.Z)
	m.Set(3, 3, 1)
	return m
}

// FromMatrix builds a pose from a 4x4 homogeneous matrix. The upper-left 3x3
// block must be a rotation.
func FromMatrix(m mat.Matrix) (Pose, error) {
	if r, c := m.Dims(); r != 4 || c != 4 {
		return Pose{}, errors.Wrapf(ErrDimension, "want 4x4 matrix, got %dx%d", r, c)
	}
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, m.At(i, j))
		}
	}
	q, err := FromRotationMatrix(rot)
	if err != nil {
		return Pose{}, err
	}
	return Pose{
		Rotation:    q,
		Translation: r3.Vec{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
	}, nil
}

// rowMajor flattens Matrix into a row-major array.
func (p Pose) rowMajor() (t [16]float64) {
	m := p.Matrix()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			t[i*4+j] = m.At(i, j)
		}
	}
	return
}

func applyRowMajor(t *[16]float64, x, y, z float64) (wx, wy, wz float64) {
	wx = t[0]*x + t[1]*y + t[2]*z + t[3]
	wy = t[4]*x + t[5]*y + t[6]*z + t[7]
	wz = t[8]*x + t[9]*y + t[10]*z + t[11]
	return
}

// TransformPoint maps v from the local frame into the reference frame.
func (p Pose) TransformPoint(v r3.Vec) r3.Vec {
	t := p.rowMajor()
	x, y, z := applyRowMajor(&t, v.X, v.Y, v.Z)
	return r3.Vec{X: x, Y: y, Z: z}
}

// TransformPoints maps every point through the homogeneous matrix of p.
// It fails with ErrDimension if any point does not have exactly 3 coordinates.
func (p Pose) TransformPoints(points [][]float64) ([][]float64, error) {
	for i, pt := range points {
		if len(pt) != 3 {
			return nil, errors.Wrapf(ErrDimension, "point %d has %d coordinates", i, len(pt))
		}
	}
	t := p.rowMajor()
	out := make([][]float64, len(points))
	for i, pt := range points {
		x, y, z := applyRowMajor(&t, pt[0], pt[1], pt[2])
		out[i] = []float64{x, y, z}
	}
	return out, nil
}

// TransformFunc returns a function mapping local coordinates into the
// reference frame. The matrix is computed once.
func (p Pose) TransformFunc() func(x, y, z float64) (float64, float64, float64) {
	t := p.rowMajor()
	return func(x, y, z float64) (float64, float64, float64) {
		return applyRowMajor(&t, x, y, z)
	}
}

// Equal reports whether p and o have identical components. No tolerance is applied.
func (p Pose) Equal(o Pose) bool {
	return p.Rotation == o.Rotation && p.Translation == o.Translation
}

// AlmostEqual reports whether every component of p and o differs by at most tol.
func (p Pose) AlmostEqual(o Pose, tol float64) bool {
	return QuaternionAlmostEqual(p.Rotation, o.Rotation, tol) &&
		math.Abs(p.Translation.X-o.Translation.X) <= tol &&
		math.Abs(p.Translation.Y-o.Translation.Y) <= tol &&
		math.Abs(p.Translation.Z-o.Translation.Z) <= tol
}

func (p Pose) String() string {
	q, t := p.Rotation, p.Translation
	return fmt.Sprintf("wxyz: %+.3f %+.3fi %+.3fj %+.3fk, tvec: (%.2f %.2f %.2f)",
		q.Real, q.Imag, q.Jmag, q.Kmag, t.X, t.Y, t.Z)
}

type jsonPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type jsonHeading struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type jsonPose struct {
	Position jsonPosition `json:"position"`
	Heading  jsonHeading  `json:"heading"`
}

// MarshalJSON encodes p in the PandaSet layout
// {"position": {"x","y","z"}, "heading": {"w","x","y","z"}}.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonPose{
		Position: jsonPosition{p.Translation.X, p.Translation.Y, p.Translation.Z},
		Heading:  jsonHeading{p.Rotation.Real, p.Rotation.Imag, p.Rotation.Jmag, p.Rotation.Kmag},
	})
}

// UnmarshalJSON decodes the PandaSet layout written by MarshalJSON.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var jp jsonPose
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	p.Rotation = Quaternion(jp.Heading.W, jp.Heading.X, jp.Heading.Y, jp.Heading.Z)
	p.Translation = r3.Vec{X: jp.Position.X, Y: jp.Position.Y, Z: jp.Position.Z}
	return nil
}
