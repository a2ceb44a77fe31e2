package pose

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerances used when checking that a matrix is a proper rotation.
const (
	rotationRtol = 1e-5
	rotationAtol = 1e-8
)

// IdentityQuaternion is the rotation that leaves every vector unchanged.
var IdentityQuaternion = quat.Number{Real: 1}

// Quaternion builds a quaternion from its w, x, y, z components.
func Quaternion(w, x, y, z float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// unitTolerance is how far the squared norm may be from one for a
// quaternion to count as unit length.
const unitTolerance = 1e-14

func sumOfSquares(q quat.Number) float64 {
	return q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag
}

// Normalize returns q divided by its norm. Quaternions within unitTolerance
// of unit length and the zero quaternion are returned as is.
func Normalize(q quat.Number) quat.Number {
	ss := sumOfSquares(q)
	if math.Abs(1-ss) < unitTolerance || ss == 0 {
		return q
	}
	n := math.Sqrt(ss)
	return quat.Number{Real: q.Real / n, Imag: q.Imag / n, Jmag: q.Jmag / n, Kmag: q.Kmag / n}
}

// Inv returns the conjugate of q divided by its squared norm. The zero
// quaternion is returned as is.
func Inv(q quat.Number) quat.Number {
	ss := sumOfSquares(q)
	if ss == 0 {
		return q
	}
	return quat.Number{Real: q.Real / ss, Imag: -q.Imag / ss, Jmag: -q.Jmag / ss, Kmag: -q.Kmag / ss}
}

// Rotate rotates v by q, normalizing q first.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(Normalize(q)).Rotate(v)
}

// RotationMatrix returns the 3x3 rotation matrix of the normalized q.
// Entries are expanded as the products Q·Q̄ᵀ of the left and right
// multiplication matrices of q.
func RotationMatrix(q quat.Number) *mat.Dense {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		x*x + w*w - z*z - y*y, x*y - w*z - z*w + y*x, x*z + w*y + z*x + y*w,
		y*x + z*w + w*z + x*y, y*y - z*z + w*w - x*x, y*z + z*y - w*x - x*w,
		z*x - y*w + x*z - w*y, z*y + y*z + x*w + w*x, z*z - y*y - x*x + w*w,
	})
}

// FromRotationMatrix converts a 3x3 rotation matrix to a quaternion.
// It fails with ErrNotRotation when r is not orthogonal with determinant 1.
func FromRotationMatrix(r mat.Matrix) (quat.Number, error) {
	if rows, cols := r.Dims(); rows != 3 || cols != 3 {
		return quat.Number{}, ErrDimension
	}
	if !isRotation(r) {
		return quat.Number{}, ErrNotRotation
	}

	// m is the transpose of r.
	m := func(i, j int) float64 { return r.At(j, i) }

	var t float64
	var q quat.Number
	if m(2, 2) < 0 {
		if m(0, 0) > m(1, 1) {
			t = 1 + m(0, 0) - m(1, 1) - m(2, 2)
			q = Quaternion(m(1, 2)-m(2, 1), t, m(0, 1)+m(1, 0), m(2, 0)+m(0, 2))
		} else {
			t = 1 - m(0, 0) + m(1, 1) - m(2, 2)
			q = Quaternion(m(2, 0)-m(0, 2), m(0, 1)+m(1, 0), t, m(1, 2)+m(2, 1))
		}
	} else {
		if m(0, 0) < -m(1, 1) {
			t = 1 - m(0, 0) - m(1, 1) + m(2, 2)
			q = Quaternion(m(0, 1)-m(1, 0), m(2, 0)+m(0, 2), m(1, 2)+m(2, 1), t)
		} else {
			t = 1 + m(0, 0) + m(1, 1) + m(2, 2)
			q = Quaternion(t, m(1, 2)-m(2, 1), m(2, 0)-m(0, 2), m(0, 1)-m(1, 0))
		}
	}
	return quat.Scale(0.5/math.Sqrt(t), q), nil
}

func isRotation(r mat.Matrix) bool {
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var want float64
			if i == j {
				want = 1
			}
			if !isClose(rrt.At(i, j), want) {
				return false
			}
		}
	}
	return isClose(mat.Det(r), 1)
}

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= rotationAtol+rotationRtol*math.Abs(b)
}

// QuaternionAlmostEqual reports whether a and b are within tol component-wise.
// q and -q describe the same rotation but are not considered equal here.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) <= tol &&
		math.Abs(a.Imag-b.Imag) <= tol &&
		math.Abs(a.Jmag-b.Jmag) <= tol &&
		math.Abs(a.Kmag-b.Kmag) <= tol
}

// SameRotation reports whether a and b describe the same rotation within tol,
// accounting for the quaternion double cover.
func SameRotation(a, b quat.Number, tol float64) bool {
	return QuaternionAlmostEqual(a, b, tol) || QuaternionAlmostEqual(a, quat.Scale(-1, b), tol)
}
