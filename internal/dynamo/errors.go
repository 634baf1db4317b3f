package dynamo

import "errors"

// Domain errors for study operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state")

	// ErrUnstable indicates the oracle's state diverged to NaN or Inf.
	ErrUnstable = errors.New("dynamo: integration unstable (state diverged)")

	// ErrParameterBounds indicates a physical parameter is outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrSmallAngleRequired indicates a closed-form solution was requested
	// for a pendulum that is not linearized.
	ErrSmallAngleRequired = errors.New("dynamo: exact solution requires the small-angle approximation")

	// ErrInvalidTimes indicates an empty, non-finite or non-increasing report grid.
	ErrInvalidTimes = errors.New("dynamo: invalid report times")

	// ErrInvalidStep indicates a non-positive or non-finite step size.
	ErrInvalidStep = errors.New("dynamo: invalid step size")

	// ErrStepTooSmall indicates the oracle's adaptive step fell below its minimum.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrTooManySteps indicates the oracle exhausted its step budget.
	ErrTooManySteps = errors.New("dynamo: step budget exhausted")

	// ErrDimensionMismatch indicates trajectories or series of different lengths.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnknownScheme indicates an integration scheme name nobody registered.
	ErrUnknownScheme = errors.New("dynamo: unknown integration scheme")
)
