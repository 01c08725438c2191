package evaluation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/internal/modules/optimization"
	"github.com/oddsforge/parlay-engine/internal/modules/parlay"
)

func testPipeline() *Pipeline {
	cfg := DefaultConfig()
	cfg.FrontierSamples = 500
	return NewPipeline(cfg, zerolog.Nop())
}

func scenarioLegs() []parlay.Leg {
	now := time.Now()
	return []parlay.Leg{
		{MarketType: "spread", Selection: "Home -3.5", Price: -110, ModelProbability: 0.55, Timestamp: now},
		{MarketType: "moneyline", Selection: "Away ML", Price: 150, ModelProbability: 0.42, Timestamp: now},
		{MarketType: "total", Selection: "Under 44.5", Price: -200, ModelProbability: 0.70, Timestamp: now},
	}
}

func TestEvaluateParlay_CleanTicket(t *testing.T) {
	p := testPipeline()

	result := p.EvaluateParlay(scenarioLegs())

	require.NotEmpty(t, result.ID)
	assert.Contains(t, []string{VerdictPositiveEV, VerdictNegativeEV}, result.Summary.Verdict)
	assert.Equal(t, domain.OverallLow, result.RiskAssessment.Overall)
	assert.NotEmpty(t, result.Recommendations.Recommendations)
	assert.GreaterOrEqual(t, result.KellyStake.RecommendedFraction, 0.0)
	assert.Equal(t, StageDone, result.Summary.Stage)
}

func TestEvaluateParlay_InjuryScenario(t *testing.T) {
	p := testPipeline()
	legs := scenarioLegs()
	legs[0].InjuryGates = []string{"Star Player (Questionable)"}

	result := p.EvaluateParlay(legs)

	var injury *domain.Risk
	for i := range result.RiskAssessment.Risks {
		if result.RiskAssessment.Risks[i].Type == domain.RiskInjury {
			injury = &result.RiskAssessment.Risks[i]
		}
	}
	require.NotNil(t, injury, "expected an injury risk")
	assert.Equal(t, domain.SeverityHigh, injury.Severity)
	assert.Contains(t, result.Recommendations.PrimaryAction, "injury confirmation")
}

func TestEvaluateParlay_NegativeCorrelationRejected(t *testing.T) {
	p := testPipeline()
	legs := scenarioLegs()
	legs[2].CorrelationTag = parlay.CorrelationNegative

	result := p.EvaluateParlay(legs)

	assert.Equal(t, VerdictRejected, result.Summary.Verdict)
	assert.Equal(t, domain.OverallRejected, result.RiskAssessment.Overall)

	criticals := 0
	for _, r := range result.Recommendations.Recommendations {
		if r.Priority == domain.SeverityCritical {
			criticals++
		}
	}
	assert.Equal(t, 1, criticals)
}

func TestEvaluateParlay_InvalidInputIsError(t *testing.T) {
	p := testPipeline()

	t.Run("too few legs", func(t *testing.T) {
		result := p.EvaluateParlay(scenarioLegs()[:1])
		assert.Equal(t, VerdictError, result.Summary.Verdict)
		assert.Equal(t, StageError, result.Summary.Stage)
		assert.NotEmpty(t, result.Summary.Error)
		assert.Nil(t, result.CombinedMetrics)
	})

	t.Run("bad probability", func(t *testing.T) {
		legs := scenarioLegs()
		legs[1].ModelProbability = 0
		result := p.EvaluateParlay(legs)
		assert.Equal(t, VerdictError, result.Summary.Verdict)
	})
}

func TestEvaluatePortfolio_MinVarianceDiversifies(t *testing.T) {
	p := testPipeline()
	assets := []domain.Asset{
		{ID: "A", ExpectedReturn: 0.05, Volatility: 0.10, Correlations: map[string]float64{"B": -0.9}},
		{ID: "B", ExpectedReturn: 0.09, Volatility: 0.30},
	}

	result := p.EvaluatePortfolio(assets, optimization.DefaultConstraints(), optimization.Limits{}, optimization.ObjectiveMinVariance)

	require.Equal(t, VerdictOptimized, result.Summary.Verdict, "error: %s", result.Summary.Error)
	require.NotNil(t, result.Selected)
	assert.Less(t, result.Selected.Volatility, 0.10)
	assert.Less(t, result.Selected.Volatility, 0.30)
}

func TestEvaluatePortfolio_OverlayTrims(t *testing.T) {
	p := testPipeline()
	assets := []domain.Asset{
		{ID: "A", ExpectedReturn: 0.06, Volatility: 0.15},
		{ID: "B", ExpectedReturn: 0.12, Volatility: 0.35},
		{ID: "C", ExpectedReturn: 0.09, Volatility: 0.25},
	}
	limits := optimization.Limits{MaxConcentration: 0.30}

	result := p.EvaluatePortfolio(assets, optimization.DefaultConstraints(), limits, optimization.ObjectiveMaxReturn)

	require.Equal(t, VerdictOptimized, result.Summary.Verdict, "error: %s", result.Summary.Error)
	for _, a := range assets {
		assert.LessOrEqual(t, result.Selected.Weights[a.ID], 0.30+1e-9)
	}
}

func TestEvaluatePortfolio_InconsistentCorrelationsAreError(t *testing.T) {
	p := testPipeline()
	// A correlated +0.95 with both B and C while B and C are correlated
	// -0.95 admits no positive semi-definite covariance, even after
	// shrinkage.
	assets := []domain.Asset{
		{ID: "A", ExpectedReturn: 0.06, Volatility: 0.20, Correlations: map[string]float64{"B": 0.95, "C": 0.95}},
		{ID: "B", ExpectedReturn: 0.08, Volatility: 0.20, Correlations: map[string]float64{"C": -0.95}},
		{ID: "C", ExpectedReturn: 0.10, Volatility: 0.20},
	}

	result := p.EvaluatePortfolio(assets, optimization.DefaultConstraints(), optimization.Limits{}, optimization.ObjectiveMinVariance)

	assert.Equal(t, VerdictError, result.Summary.Verdict)
	assert.Equal(t, StageError, result.Summary.Stage)
	assert.Nil(t, result.Selected)
	assert.Contains(t, result.Summary.Error, "positive")
}

func TestEvaluatePortfolio_SingleAssetIsError(t *testing.T) {
	p := testPipeline()
	assets := []domain.Asset{{ID: "A", ExpectedReturn: 0.05, Volatility: 0.10}}

	result := p.EvaluatePortfolio(assets, optimization.DefaultConstraints(), optimization.Limits{}, optimization.ObjectiveMaxSharpe)

	assert.Equal(t, VerdictError, result.Summary.Verdict)
	assert.Equal(t, StageError, result.Summary.Stage)
	assert.Nil(t, result.Selected)
}

func TestConfidenceFromRisks(t *testing.T) {
	assert.InDelta(t, 0.9, confidenceFromRisks(nil), 1e-12)
	assert.InDelta(t, 0.7, confidenceFromRisks(make([]domain.Risk, 2)), 1e-12)
	assert.InDelta(t, 0.3, confidenceFromRisks(make([]domain.Risk, 10)), 1e-12)
}
