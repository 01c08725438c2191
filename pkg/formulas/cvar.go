package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// CalculateCVaR calculates Conditional Value at Risk (CVaR) at the specified
// confidence level. CVaR is the expected return given that the return falls
// at or below the VaR threshold.
//
// Args:
//   - returns: Simulated or historical returns (negative for losses)
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR value (negative for losses in the tail)
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	if len(returns) == 1 {
		return returns[0]
	}

	// Sort returns in ascending order (worst first)
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// For 95% confidence we average the worst 5% of outcomes
	tailProbability := 1.0 - confidence
	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))

	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	tail := sorted[:tailCount]
	sum := 0.0
	for _, r := range tail {
		sum += r
	}

	return sum / float64(len(tail))
}

// ParametricVaR calculates Value at Risk assuming normally distributed
// returns: VaR = z(confidence) * volatility.
//
// The result is reported as a positive loss magnitude.
func ParametricVaR(volatility, confidence float64) float64 {
	if volatility <= 0 {
		return 0.0
	}

	z := distuv.UnitNormal.Quantile(confidence)
	return z * volatility
}
