package formulas

import (
	"fmt"
	"math"
)

// Probability clamp bounds. Model probabilities outside this range are
// treated as estimation noise rather than genuine certainty.
const (
	MinProbability = 0.01
	MaxProbability = 0.99
)

// AmericanToDecimal converts American odds to decimal odds.
//
//	+150 -> 2.50 (win 1.5 units per unit staked)
//	-110 -> 1.909...
//
// Returns an error for zero or non-finite input; American odds of zero are
// not a price.
func AmericanToDecimal(american float64) (float64, error) {
	if american == 0 || math.IsNaN(american) || math.IsInf(american, 0) {
		return 0, fmt.Errorf("invalid american odds: %v", american)
	}

	if american > 0 {
		return 1.0 + american/100.0, nil
	}
	return 1.0 + 100.0/math.Abs(american), nil
}

// DecimalToAmerican converts decimal odds back to American odds.
// Fails for decimal odds at or below 1.0 (no payout).
func DecimalToAmerican(decimal float64) (float64, error) {
	if decimal <= 1.0 || math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return 0, fmt.Errorf("invalid decimal odds: %v", decimal)
	}

	if decimal >= 2.0 {
		return (decimal - 1.0) * 100.0, nil
	}
	return -100.0 / (decimal - 1.0), nil
}

// ImpliedProbability returns the probability implied by decimal odds.
// Returns 0 for odds at or below 1.0.
func ImpliedProbability(decimal float64) float64 {
	if decimal <= 1.0 {
		return 0.0
	}
	return 1.0 / decimal
}

// ClampProbability restricts a probability to [MinProbability, MaxProbability].
func ClampProbability(p float64) float64 {
	return math.Max(MinProbability, math.Min(MaxProbability, p))
}

// EVPercent calculates expected value as a percentage of stake.
//
//	EV% = (p * decimalOdds - 1) * 100
//
// The probability is clamped to [0.01, 0.99] before use. Decimal odds at or
// below 1.0 carry no payout, so the full stake is the expected loss (-100).
func EVPercent(decimalOdds, probability float64) float64 {
	if decimalOdds <= 1.0 {
		return -100.0
	}

	p := ClampProbability(probability)
	return (p*decimalOdds - 1.0) * 100.0
}

// KellyFraction calculates the Kelly criterion stake fraction for a single
// bet at the given decimal odds and win probability.
//
//	b = decimalOdds - 1
//	f = (b*p - q) / b, floored at 0
//
// A zero result means no edge: do not bet.
func KellyFraction(decimalOdds, probability float64) float64 {
	b := decimalOdds - 1.0
	if b <= 0 {
		return 0.0
	}

	p := ClampProbability(probability)
	q := 1.0 - p

	f := (b*p - q) / b
	return math.Max(0.0, f)
}
