// Package evaluation is the orchestrating entry point. It sequences
// validation, metric computation, risk assessment and recommendations
// into one structured result per call. Typed errors from the lower
// layers surface here as an ERROR verdict; a REJECTED verdict is a
// successful evaluation with a negative recommendation.
package evaluation

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/internal/modules/optimization"
	"github.com/oddsforge/parlay-engine/internal/modules/parlay"
	"github.com/oddsforge/parlay-engine/internal/modules/returns"
	"github.com/oddsforge/parlay-engine/internal/modules/risk"
)

// Stage names the pipeline states in execution order.
type Stage string

const (
	StageValidateInput  Stage = "VALIDATE_INPUT"
	StageComputeMetrics Stage = "COMPUTE_COMBINED_METRICS"
	StageAssessRisk     Stage = "ASSESS_RISK"
	StageRecommend      Stage = "RECOMMEND"
	StageSummarize      Stage = "SUMMARIZE"
	StageDone           Stage = "DONE"
	StageError          Stage = "ERROR"
)

// Verdicts for the result summary.
const (
	VerdictPositiveEV = "POSITIVE_EV"
	VerdictNegativeEV = "NEGATIVE_EV"
	VerdictRejected   = "REJECTED"
	VerdictOptimized  = "OPTIMIZED"
	VerdictError      = "ERROR"
)

// Config carries the tunables the pipeline hands to its components.
type Config struct {
	RiskFreeRate     float64
	FrontierSamples  int
	Confidence       float64
	KellyCap         float64
	MaxStakeFraction float64
	Seed             uint64
}

// DefaultConfig returns the standing defaults.
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:     0.02,
		FrontierSamples:  optimization.DefaultFrontierSamples,
		Confidence:       0.95,
		KellyCap:         parlay.DefaultKellyCap,
		MaxStakeFraction: parlay.DefaultMaxStakeFraction,
		Seed:             1,
	}
}

// Pipeline wires the quantitative components together. It is stateless
// between calls.
type Pipeline struct {
	cfg         Config
	covariance  *risk.CovarianceBuilder
	estimator   *returns.Estimator
	optimizer   *optimization.Optimizer
	overlay     *optimization.RiskOverlay
	assessor    *parlay.RiskAssessor
	recommender *parlay.RecommendationEngine
	log         zerolog.Logger
}

func NewPipeline(cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		covariance:  risk.NewCovarianceBuilder(log),
		estimator:   returns.NewEstimator(cfg.RiskFreeRate, log),
		optimizer:   optimization.NewOptimizer(cfg.FrontierSamples, cfg.RiskFreeRate, cfg.Confidence, log),
		overlay:     optimization.NewRiskOverlay(cfg.RiskFreeRate, cfg.Confidence, log),
		assessor:    parlay.NewRiskAssessor(log),
		recommender: parlay.NewRecommendationEngine(cfg.KellyCap, cfg.MaxStakeFraction, log),
		log:         log.With().Str("component", "evaluation").Logger(),
	}
}

// ParlayResult is the structured output of EvaluateParlay.
type ParlayResult struct {
	ID              string                   `json:"id"`
	Legs            []parlay.Leg             `json:"legs"`
	CombinedMetrics *parlay.CombinedMetrics  `json:"combined_metrics,omitempty"`
	RiskAssessment  domain.RiskAssessment    `json:"risk_assessment"`
	Recommendations domain.RecommendationSet `json:"recommendations"`
	KellyStake      domain.KellyStake        `json:"kelly_stake"`
	Summary         Summary                  `json:"summary"`
}

// PortfolioResult is the structured output of EvaluatePortfolio.
type PortfolioResult struct {
	ID       string                           `json:"id"`
	Assets   []domain.Asset                   `json:"assets"`
	Selected *optimization.PortfolioMetrics   `json:"selected,omitempty"`
	Frontier []*optimization.PortfolioMetrics `json:"frontier,omitempty"`
	Summary  Summary                          `json:"summary"`
}

// Summary is the one-line outcome of an evaluation.
type Summary struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Stage      Stage   `json:"stage"`
	Error      string  `json:"error,omitempty"`
}

// EvaluateParlay runs the full parlay pipeline. Only this boundary
// converts typed errors into an ERROR summary.
func (p *Pipeline) EvaluateParlay(legs []parlay.Leg) *ParlayResult {
	result := &ParlayResult{
		ID:   uuid.New().String(),
		Legs: legs,
	}

	// VALIDATE_INPUT and COMPUTE_COMBINED_METRICS share the Combine
	// call, which validates every leg before deriving the figures.
	metrics, err := parlay.Combine(legs)
	if err != nil {
		return p.failParlay(result, StageValidateInput, err)
	}
	result.CombinedMetrics = metrics

	result.RiskAssessment = p.assessor.Assess(legs, metrics)

	result.KellyStake = p.recommender.Stake(metrics)
	result.Recommendations = p.recommender.Recommend(metrics, result.RiskAssessment, result.KellyStake)

	result.Summary = p.summarizeParlay(metrics, result.RiskAssessment)

	p.log.Info().
		Str("id", result.ID).
		Int("legs", len(legs)).
		Str("verdict", result.Summary.Verdict).
		Str("overall_risk", string(result.RiskAssessment.Overall)).
		Msg("Evaluated parlay")

	return result
}

// EvaluatePortfolio estimates the inputs, searches the frontier for the
// objective and applies the risk overlay.
func (p *Pipeline) EvaluatePortfolio(
	assets []domain.Asset,
	constraints optimization.Constraints,
	limits optimization.Limits,
	objective optimization.Objective,
) *PortfolioResult {
	result := &PortfolioResult{
		ID:     uuid.New().String(),
		Assets: assets,
	}

	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}

	covMatrix, err := p.buildCovariance(assets, ids)
	if err != nil {
		return p.failPortfolio(result, StageValidateInput, err)
	}
	if err := risk.EnsurePSD(covMatrix); err != nil {
		return p.failPortfolio(result, StageValidateInput, err)
	}

	mu, err := p.estimator.EstimateAll(assets, covMatrix)
	if err != nil {
		return p.failPortfolio(result, StageComputeMetrics, err)
	}

	optimized, err := p.optimizer.Optimize(mu, covMatrix, ids, constraints, objective, p.cfg.Seed)
	if err != nil {
		return p.failPortfolio(result, StageComputeMetrics, err)
	}

	adjusted, err := p.overlay.Apply(optimized.Selected, mu, covMatrix, ids, limits, p.cfg.Seed)
	if err != nil {
		return p.failPortfolio(result, StageAssessRisk, err)
	}

	result.Selected = adjusted
	result.Frontier = optimized.Frontier
	result.Summary = Summary{
		Verdict:    VerdictOptimized,
		Confidence: confidenceFromRisks(nil),
		Stage:      StageDone,
	}

	p.log.Info().
		Str("id", result.ID).
		Int("assets", len(assets)).
		Str("objective", string(objective)).
		Float64("volatility", adjusted.Volatility).
		Msg("Evaluated portfolio")

	return result
}

func (p *Pipeline) summarizeParlay(metrics *parlay.CombinedMetrics, assessment domain.RiskAssessment) Summary {
	verdict := VerdictNegativeEV
	if metrics.EVPercent > 0 {
		verdict = VerdictPositiveEV
	}
	if assessment.Overall == domain.OverallRejected {
		verdict = VerdictRejected
	}

	return Summary{
		Verdict:    verdict,
		Confidence: confidenceFromRisks(assessment.Risks),
		Stage:      StageDone,
	}
}

// confidenceFromRisks discounts a 0.9 base by 0.1 per flagged risk,
// floored at 0.3.
func confidenceFromRisks(risks []domain.Risk) float64 {
	confidence := 0.9 - 0.1*float64(len(risks))
	if confidence < 0.3 {
		confidence = 0.3
	}
	return confidence
}

// buildCovariance prefers realized return series when every asset
// carries one; the series are aligned on their most recent overlap.
// Synthetic volatility and correlation inputs are the fallback.
func (p *Pipeline) buildCovariance(assets []domain.Asset, ids []string) ([][]float64, error) {
	returns := make(map[string][]float64, len(assets))
	minLen := 0
	for _, a := range assets {
		if len(a.History) == 0 {
			return p.covariance.FromAssets(assets, nil)
		}
		if minLen == 0 || len(a.History) < minLen {
			minLen = len(a.History)
		}
		returns[a.ID] = a.History
	}
	if minLen < risk.MinObservations {
		return p.covariance.FromAssets(assets, nil)
	}
	for id, series := range returns {
		returns[id] = series[len(series)-minLen:]
	}
	return p.covariance.FromHistory(returns, ids, nil)
}

func (p *Pipeline) failParlay(result *ParlayResult, stage Stage, err error) *ParlayResult {
	p.log.Error().Err(err).Str("stage", string(stage)).Msg("Parlay evaluation failed")
	result.Summary = Summary{
		Verdict: VerdictError,
		Stage:   StageError,
		Error:   err.Error(),
	}
	return result
}

func (p *Pipeline) failPortfolio(result *PortfolioResult, stage Stage, err error) *PortfolioResult {
	p.log.Error().Err(err).Str("stage", string(stage)).Msg("Portfolio evaluation failed")
	result.Summary = Summary{
		Verdict: VerdictError,
		Stage:   StageError,
		Error:   err.Error(),
	}
	return result
}
