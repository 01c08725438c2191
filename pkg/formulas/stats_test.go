package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	// Sample stddev of {2,4,4,4,5,5,7,9} is ~2.138
	assert.InDelta(t, 2.138, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.001)
}

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	assert.InDelta(t, 1.0, Correlation(x, y), 1e-9)

	inverse := []float64{10, 8, 6, 4, 2}
	assert.InDelta(t, -1.0, Correlation(x, inverse), 1e-9)

	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
}

func TestAnnualizedVolatility(t *testing.T) {
	daily := []float64{0.01, -0.01, 0.02, -0.02, 0.01}
	got := AnnualizedVolatility(daily)

	expected := StdDev(daily) * math.Sqrt(252)
	assert.InDelta(t, expected, got, 1e-12)
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}

func TestSharpeRatio(t *testing.T) {
	assert.InDelta(t, 0.5, SharpeRatio(0.12, 0.02, 0.20), 1e-9)
	assert.Equal(t, 0.0, SharpeRatio(0.12, 0.02, 0.0))
	assert.Less(t, SharpeRatio(0.01, 0.02, 0.20), 0.0)
}

func TestCalculateEMA_FallsBackToSMA(t *testing.T) {
	short := []float64{1, 2, 3}
	ema := CalculateEMA(short, 10)

	assert.NotNil(t, ema)
	assert.InDelta(t, 2.0, *ema, 1e-9)

	assert.Nil(t, CalculateEMA(nil, 10))
}

func TestCalculateDistanceFromEMA(t *testing.T) {
	// Flat series: price equals EMA, distance zero.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50.0
	}

	dist := CalculateDistanceFromEMA(flat, 10)
	assert.NotNil(t, dist)
	assert.InDelta(t, 0.0, *dist, 1e-9)
}
