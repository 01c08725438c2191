package domain

import "fmt"

// InputError reports malformed or insufficient legs/assets.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// NewInputError creates an InputError with a formatted reason.
func NewInputError(format string, args ...interface{}) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// CovarianceError reports a covariance matrix that is unusable, typically
// because it is not positive-semi-definite after shrinkage.
type CovarianceError struct {
	Reason string
}

func (e *CovarianceError) Error() string {
	return "covariance: " + e.Reason
}

// NewCovarianceError creates a CovarianceError with a formatted reason.
func NewCovarianceError(format string, args ...interface{}) *CovarianceError {
	return &CovarianceError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports that expected-return estimation was
// impossible for a specific asset.
type InsufficientDataError struct {
	AssetID string
	Reason  string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s", e.AssetID, e.Reason)
}

// OptimizationError reports that no feasible portfolio was found.
type OptimizationError struct {
	Reason string
}

func (e *OptimizationError) Error() string {
	return "optimization: " + e.Reason
}

// NewOptimizationError creates an OptimizationError with a formatted reason.
func NewOptimizationError(format string, args ...interface{}) *OptimizationError {
	return &OptimizationError{Reason: fmt.Sprintf(format, args...)}
}
