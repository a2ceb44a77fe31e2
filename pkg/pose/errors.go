package pose

import "github.com/pkg/errors"

// ErrPrecondition is wrapped by every error caused by malformed input to
// the geometry functions. Such errors are never defaulted away.
var ErrPrecondition = errors.New("geometry precondition")

var (
	ErrDimension   = errors.Wrap(ErrPrecondition, "unexpected dimension")
	ErrNotRotation = errors.Wrap(ErrPrecondition, "matrix is not a rotation")
)
