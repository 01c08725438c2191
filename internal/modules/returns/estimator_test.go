package returns

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/internal/modules/risk"
)

func buildCov(t *testing.T, assets []domain.Asset) [][]float64 {
	t.Helper()
	cb := risk.NewCovarianceBuilder(zerolog.Nop())
	cov, err := cb.FromAssets(assets, nil)
	require.NoError(t, err)
	return cov
}

func TestCombineBMA(t *testing.T) {
	tests := []struct {
		name      string
		estimates []Estimate
		want      float64
		wantOK    bool
		tolerance float64
	}{
		{
			name:   "no estimates",
			wantOK: false,
		},
		{
			name: "single estimate",
			estimates: []Estimate{
				{Method: MethodHistorical, Value: 0.08, Variance: 0.01},
			},
			want:      0.08,
			wantOK:    true,
			tolerance: 1e-12,
		},
		{
			name: "inverse variance weighting",
			estimates: []Estimate{
				{Method: MethodHistorical, Value: 0.10, Variance: 0.01}, // weight 100
				{Method: MethodCAPM, Value: 0.04, Variance: 0.03},       // weight 33.3
			},
			want:      0.085, // (100*0.10 + 33.33*0.04) / 133.33
			wantOK:    true,
			tolerance: 1e-3,
		},
		{
			name: "undefined variance excluded",
			estimates: []Estimate{
				{Method: MethodHistorical, Value: 0.10, Variance: 0.01},
				{Method: MethodTrend, Value: 5.0, Variance: math.NaN()},
			},
			want:      0.10,
			wantOK:    true,
			tolerance: 1e-12,
		},
		{
			name: "all variances undefined",
			estimates: []Estimate{
				{Method: MethodTrend, Value: 0.10, Variance: 0},
				{Method: MethodCAPM, Value: 0.05, Variance: math.NaN()},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := combineBMA(tt.estimates)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, tt.tolerance)
			}
		})
	}
}

func TestEstimateAll(t *testing.T) {
	assets := []domain.Asset{
		{ID: "A", ExpectedReturn: 0.08, Volatility: 0.15},
		{ID: "B", ExpectedReturn: 0.12, Volatility: 0.25},
	}
	cov := buildCov(t, assets)

	e := NewEstimator(0.02, zerolog.Nop())
	got, err := e.EstimateAll(assets, cov)

	require.NoError(t, err)
	require.Len(t, got, 2)

	// Without history, CAPM and BL drive the combination; results should be
	// finite and in a sane range around the stated returns.
	for id, value := range got {
		assert.False(t, math.IsNaN(value), "estimate for %s is NaN", id)
		assert.Greater(t, value, -0.5, "estimate for %s", id)
		assert.Less(t, value, 0.5, "estimate for %s", id)
	}
}

func TestEstimateAll_WithHistory(t *testing.T) {
	history := make([]float64, 30)
	for i := range history {
		// Alternating small returns with positive drift
		history[i] = 0.001
		if i%3 == 0 {
			history[i] = -0.0005
		}
	}

	assets := []domain.Asset{
		{ID: "A", ExpectedReturn: 0.08, Volatility: 0.15, History: history},
		{ID: "B", ExpectedReturn: 0.12, Volatility: 0.25},
	}
	cov := buildCov(t, assets)

	e := NewEstimator(0.02, zerolog.Nop())
	got, err := e.EstimateAll(assets, cov)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEstimateAll_InsufficientData(t *testing.T) {
	// Zero stated returns, no history: BL has no views to sharpen the
	// equilibrium but CAPM still prices off the basket, so estimation
	// succeeds. A degenerate zero-volatility pair removes CAPM too.
	assets := []domain.Asset{
		{ID: "A", Volatility: 0.0},
		{ID: "B", Volatility: 0.0},
	}
	cov := buildCov(t, assets)

	e := NewEstimator(0.02, zerolog.Nop())
	_, err := e.EstimateAll(assets, cov)

	var insufficientErr *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficientErr)
}

func TestHistoricalEstimate(t *testing.T) {
	e := NewEstimator(0.02, zerolog.Nop())

	t.Run("too little history", func(t *testing.T) {
		_, ok := e.historicalEstimate(domain.Asset{ID: "A", History: []float64{0.01, 0.02}})
		assert.False(t, ok)
	})

	t.Run("annualizes mean", func(t *testing.T) {
		history := []float64{0.001, 0.001, 0.001, 0.002, 0.0}
		est, ok := e.historicalEstimate(domain.Asset{ID: "A", History: history})
		require.True(t, ok)
		assert.Equal(t, MethodHistorical, est.Method)
		assert.InDelta(t, 0.001*252, est.Value, 1e-9)
		assert.Greater(t, est.Variance, 0.0)
	})
}

func TestCAPMEstimate_BetaScalesWithRisk(t *testing.T) {
	assets := []domain.Asset{
		{ID: "LOW", ExpectedReturn: 0.06, Volatility: 0.10},
		{ID: "HIGH", ExpectedReturn: 0.10, Volatility: 0.40},
	}
	cov := buildCov(t, assets)

	e := NewEstimator(0.02, zerolog.Nop())

	low, okLow := e.capmEstimate(assets[0], 0, assets, cov)
	high, okHigh := e.capmEstimate(assets[1], 1, assets, cov)

	require.True(t, okLow)
	require.True(t, okHigh)

	// The riskier asset carries the larger beta and the larger CAPM return.
	assert.Greater(t, high.Value, low.Value)
}

func TestBlackLitterman_NoViewsReturnsEquilibrium(t *testing.T) {
	bl := NewBlackLitterman(zerolog.Nop())

	assets := []domain.Asset{
		{ID: "A", Volatility: 0.10},
		{ID: "B", Volatility: 0.20},
	}
	cov := [][]float64{
		{0.01, 0.004},
		{0.004, 0.04},
	}

	weights := map[string]float64{"A": 0.5, "B": 0.5}
	ids := []string{assets[0].ID, assets[1].ID}

	equilibrium, err := bl.MarketEquilibrium(weights, cov, ids, DefaultRiskAversion)
	require.NoError(t, err)

	blended, err := bl.BlendViews(equilibrium, nil, cov, ids, DefaultTau)
	require.NoError(t, err)
	assert.Equal(t, equilibrium, blended)
}

func TestBlackLitterman_ViewPullsPosterior(t *testing.T) {
	bl := NewBlackLitterman(zerolog.Nop())

	cov := [][]float64{
		{0.01, 0.004},
		{0.004, 0.04},
	}
	ids := []string{"A", "B"}
	weights := map[string]float64{"A": 0.5, "B": 0.5}

	equilibrium, err := bl.MarketEquilibrium(weights, cov, ids, DefaultRiskAversion)
	require.NoError(t, err)

	// A strongly bullish view on A should lift its posterior return.
	views := []View{{Type: "absolute", AssetID: "A", Return: equilibrium["A"] + 0.10, Confidence: 0.9}}

	posterior, err := bl.BlendViews(equilibrium, views, cov, ids, DefaultTau)
	require.NoError(t, err)
	assert.Greater(t, posterior["A"], equilibrium["A"])
}
