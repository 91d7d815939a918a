package estimator

import "errors"

var (
	ErrInvalidEstimator      = errors.New("estimator: invalid configuration")
	ErrInvalidDiscretization = errors.New("estimator: invalid discretization")
	ErrReduction             = errors.New("estimator: reduction failed")
)
