package collision

import "errors"

var (
	ErrInvalidReaction   = errors.New("collision: invalid reaction")
	ErrInvalidNuclide    = errors.New("collision: invalid nuclide")
	ErrInconsistentTotal = errors.New("collision: calculated total cross section does not match tabulated total")
	ErrInvalidMaterial   = errors.New("collision: invalid material")
	ErrSamplingFailure   = errors.New("collision: reaction sampling exhausted without selecting a channel")
)
