package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
)

func TestNormalizeDividesByNorm(t *testing.T) {
	n := math.Sqrt(30)
	assert.Equal(t, Quaternion(1/n, 2/n, 3/n, 4/n), Normalize(Quaternion(1, 2, 3, 4)))

	// Squared norm within 1e-14 of one: left untouched.
	q := Quaternion(1, 4e-8, 0, 0)
	assert.NotEqual(t, 1.0, sumOfSquares(q))
	assert.Equal(t, q, Normalize(q))

	assert.Equal(t, Quaternion(0, 0, 0, 0), Normalize(Quaternion(0, 0, 0, 0)))
}

func TestInvDividesConjugateBySquaredNorm(t *testing.T) {
	ss := 30.0
	assert.Equal(t, Quaternion(1/ss, -2/ss, -3/ss, -4/ss), Inv(Quaternion(1, 2, 3, 4)))

	q := Normalize(Quaternion(0.3, -0.2, 0.9, 0.1))
	assert.True(t, QuaternionAlmostEqual(IdentityQuaternion, quat.Mul(q, Inv(q)), 1e-12))
}

func TestPreconditionErrors(t *testing.T) {
	for _, err := range []error{ErrDimension, ErrNotRotation} {
		assert.True(t, errors.Is(err, ErrPrecondition), err.Error())
		assert.Contains(t, err.Error(), ErrPrecondition.Error())
	}
}
