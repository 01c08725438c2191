package simulation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsforge/parlay-engine/internal/domain"
)

func twoAssetInputs() (map[string]float64, [][]float64, map[string]float64, []string) {
	mu := map[string]float64{"A": 0.08, "B": 0.12}
	cov := [][]float64{
		{0.0225, 0.0075},
		{0.0075, 0.0625},
	}
	weights := map[string]float64{"A": 0.6, "B": 0.4}
	ids := []string{"A", "B"}
	return mu, cov, weights, ids
}

func TestSimulatePortfolio_Deterministic(t *testing.T) {
	mu, cov, weights, ids := twoAssetInputs()
	s := NewSimulator(500, zerolog.Nop())

	first, err := s.SimulatePortfolio(mu, cov, weights, ids, 42)
	require.NoError(t, err)
	second, err := s.SimulatePortfolio(mu, cov, weights, ids, 42)
	require.NoError(t, err)

	require.Equal(t, first.NumScenarios, second.NumScenarios)
	assert.Equal(t, first.Returns, second.Returns)
	assert.Equal(t, first.CVaR95, second.CVaR95)
}

func TestSimulatePortfolio_SeedChangesScenarios(t *testing.T) {
	mu, cov, weights, ids := twoAssetInputs()
	s := NewSimulator(500, zerolog.Nop())

	first, err := s.SimulatePortfolio(mu, cov, weights, ids, 1)
	require.NoError(t, err)
	second, err := s.SimulatePortfolio(mu, cov, weights, ids, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.Returns, second.Returns)
}

func TestSimulatePortfolio_MeanConverges(t *testing.T) {
	mu, cov, weights, ids := twoAssetInputs()
	s := NewSimulator(50000, zerolog.Nop())

	result, err := s.SimulatePortfolio(mu, cov, weights, ids, 7)
	require.NoError(t, err)

	// Analytic portfolio mean: 0.6*0.08 + 0.4*0.12 = 0.096
	assert.InDelta(t, 0.096, result.ExpectedMean, 0.005)

	// Analytic portfolio stddev from w'Σw
	wantVar := 0.36*0.0225 + 0.16*0.0625 + 2*0.6*0.4*0.0075
	assert.InDelta(t, math.Sqrt(wantVar), result.StdDev, 0.005)
}

func TestSimulatePortfolio_CVaRBelowVaR(t *testing.T) {
	mu, cov, weights, ids := twoAssetInputs()
	s := NewSimulator(20000, zerolog.Nop())

	result, err := s.SimulatePortfolio(mu, cov, weights, ids, 99)
	require.NoError(t, err)

	// CVaR averages the tail beyond VaR, so the implied tail-average
	// return sits at or below the VaR cutoff return.
	assert.LessOrEqual(t, result.CVaR95, -result.VaR95+1e-9)
}

func TestSimulatePortfolio_InputErrors(t *testing.T) {
	s := NewSimulator(100, zerolog.Nop())

	t.Run("no assets", func(t *testing.T) {
		_, err := s.SimulatePortfolio(nil, nil, nil, nil, 1)
		var inputErr *domain.InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("size mismatch", func(t *testing.T) {
		mu, cov, weights, _ := twoAssetInputs()
		_, err := s.SimulatePortfolio(mu, cov, weights, []string{"A"}, 1)
		var inputErr *domain.InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("non-PSD covariance", func(t *testing.T) {
		mu, _, weights, ids := twoAssetInputs()
		bad := [][]float64{
			{0.01, 0.5},
			{0.5, 0.01},
		}
		_, err := s.SimulatePortfolio(mu, bad, weights, ids, 1)
		var covErr *domain.CovarianceError
		require.ErrorAs(t, err, &covErr)
	})
}

func TestSimulatePortfolio_NegativeCorrelationDampens(t *testing.T) {
	mu := map[string]float64{"A": 0.08, "B": 0.08}
	weights := map[string]float64{"A": 0.5, "B": 0.5}
	ids := []string{"A", "B"}

	hedged := [][]float64{
		{0.04, -0.036},
		{-0.036, 0.04},
	}
	coupled := [][]float64{
		{0.04, 0.036},
		{0.036, 0.04},
	}

	s := NewSimulator(20000, zerolog.Nop())

	hedgedResult, err := s.SimulatePortfolio(mu, hedged, weights, ids, 5)
	require.NoError(t, err)
	coupledResult, err := s.SimulatePortfolio(mu, coupled, weights, ids, 5)
	require.NoError(t, err)

	assert.Less(t, hedgedResult.StdDev, coupledResult.StdDev)
}
