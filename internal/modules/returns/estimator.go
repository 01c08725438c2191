package returns

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/pkg/formulas"
)

// Estimation method names.
const (
	MethodHistorical     = "historical_mean"
	MethodCAPM           = "capm"
	MethodBlackLitterman = "black_litterman"
	MethodTrend          = "trend"
)

// Constants for estimation
const (
	MinHistoryObservations = 5    // fewer observations than this disqualify history-based methods
	TrendWindow            = 10   // EMA window for the trend estimator
	DefaultRiskAversion    = 2.5  // λ for the equilibrium prior
	DefaultTau             = 0.05 // BL scaling factor
	PeriodsPerYear         = 252.0
)

// Estimate is one method's opinion about an asset's expected return,
// together with the method's estimation variance. Methods that cannot
// quantify their own uncertainty report a NaN variance and are excluded
// from the model average.
type Estimate struct {
	Method   string
	Value    float64
	Variance float64
}

// Estimator computes per-asset expected returns by combining several
// independent estimation methods via Bayesian model averaging.
type Estimator struct {
	riskFreeRate float64
	bl           *BlackLitterman
	log          zerolog.Logger
}

// NewEstimator creates a new expected-return estimator.
func NewEstimator(riskFreeRate float64, log zerolog.Logger) *Estimator {
	return &Estimator{
		riskFreeRate: riskFreeRate,
		bl:           NewBlackLitterman(log),
		log:          log.With().Str("component", "returns").Logger(),
	}
}

// EstimateAll produces one combined expected-return estimate per asset.
// An asset for which no method is available fails with
// InsufficientDataError rather than receiving a silent default.
func (e *Estimator) EstimateAll(assets []domain.Asset, covMatrix [][]float64) (map[string]float64, error) {
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}

	// Equilibrium prior over an equal-weight basket, blended with the
	// caller's stated expected returns as absolute views.
	blReturns := e.blackLittermanReturns(assets, ids, covMatrix)

	combined := make(map[string]float64, len(assets))

	for i, asset := range assets {
		estimates := e.estimateAsset(asset, i, assets, covMatrix, blReturns)

		value, ok := combineBMA(estimates)
		if !ok {
			return nil, &domain.InsufficientDataError{
				AssetID: asset.ID,
				Reason:  "no estimation method available",
			}
		}

		combined[asset.ID] = value

		e.log.Debug().
			Str("asset", asset.ID).
			Int("num_methods", len(estimates)).
			Float64("expected_return", value).
			Msg("Combined expected return")
	}

	return combined, nil
}

// estimateAsset runs every applicable estimation method for one asset.
func (e *Estimator) estimateAsset(
	asset domain.Asset,
	idx int,
	assets []domain.Asset,
	covMatrix [][]float64,
	blReturns map[string]float64,
) []Estimate {
	estimates := make([]Estimate, 0, 4)

	if est, ok := e.historicalEstimate(asset); ok {
		estimates = append(estimates, est)
	}
	if est, ok := e.capmEstimate(asset, idx, assets, covMatrix); ok {
		estimates = append(estimates, est)
	}
	if blReturns != nil {
		if value, has := blReturns[asset.ID]; has {
			// Posterior variance approximated by the scaled prior variance.
			estimates = append(estimates, Estimate{
				Method:   MethodBlackLitterman,
				Value:    value,
				Variance: DefaultTau * covMatrix[idx][idx],
			})
		}
	}
	if est, ok := e.trendEstimate(asset); ok {
		estimates = append(estimates, est)
	}

	return estimates
}

// historicalEstimate annualizes the mean of the asset's return history.
// Estimation variance is the variance of the sample mean: var(r)/n.
func (e *Estimator) historicalEstimate(asset domain.Asset) (Estimate, bool) {
	if len(asset.History) < MinHistoryObservations {
		return Estimate{}, false
	}

	annualized := formulas.Mean(asset.History) * PeriodsPerYear
	sampleVar := formulas.Variance(asset.History)

	return Estimate{
		Method:   MethodHistorical,
		Value:    annualized,
		Variance: sampleVar / float64(len(asset.History)),
	}, true
}

// capmEstimate prices the asset against an equal-weight basket of the
// supplied assets: r = r_f + β(μ_m - r_f), β = cov(i, m)/var(m).
// Estimation variance is the idiosyncratic residual Σ_ii - β²·var(m).
func (e *Estimator) capmEstimate(
	asset domain.Asset,
	idx int,
	assets []domain.Asset,
	covMatrix [][]float64,
) (Estimate, bool) {
	n := len(assets)
	if n < 2 || len(covMatrix) != n {
		return Estimate{}, false
	}

	w := 1.0 / float64(n)

	marketVar := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			marketVar += w * w * covMatrix[i][j]
		}
	}
	if marketVar <= 1e-12 {
		return Estimate{}, false
	}

	covIM := 0.0
	for j := 0; j < n; j++ {
		covIM += w * covMatrix[idx][j]
	}
	beta := covIM / marketVar

	marketReturn := 0.0
	for _, a := range assets {
		marketReturn += w * a.ExpectedReturn
	}

	value := e.riskFreeRate + beta*(marketReturn-e.riskFreeRate)

	residual := covMatrix[idx][idx] - beta*beta*marketVar
	if residual <= 1e-12 {
		residual = 1e-12
	}

	return Estimate{
		Method:   MethodCAPM,
		Value:    value,
		Variance: residual,
	}, true
}

// trendEstimate annualizes the distance of the equity curve from its EMA
// as a momentum signal. Estimation variance is the sample variance of the
// trailing returns, which penalizes choppy series.
func (e *Estimator) trendEstimate(asset domain.Asset) (Estimate, bool) {
	if len(asset.History) < TrendWindow {
		return Estimate{}, false
	}

	// Compound the return series into an equity curve for the EMA.
	curve := make([]float64, len(asset.History)+1)
	curve[0] = 1.0
	for i, r := range asset.History {
		curve[i+1] = curve[i] * (1.0 + r)
	}

	distance := formulas.CalculateDistanceFromEMA(curve, TrendWindow)
	if distance == nil {
		return Estimate{}, false
	}

	// Scale the EMA distance from the window horizon to annual.
	value := *distance * (PeriodsPerYear / float64(TrendWindow))

	return Estimate{
		Method:   MethodTrend,
		Value:    value,
		Variance: formulas.Variance(asset.History),
	}, true
}

// blackLittermanReturns builds the BL posterior for all assets, using the
// caller's stated expected returns as absolute views on the equilibrium.
// Returns nil when the prior cannot be computed; BL is then simply skipped.
func (e *Estimator) blackLittermanReturns(
	assets []domain.Asset,
	ids []string,
	covMatrix [][]float64,
) map[string]float64 {
	if len(covMatrix) != len(assets) {
		return nil
	}

	weights := make(map[string]float64, len(assets))
	for _, a := range assets {
		weights[a.ID] = 1.0 / float64(len(assets))
	}

	equilibrium, err := e.bl.MarketEquilibrium(weights, covMatrix, ids, DefaultRiskAversion)
	if err != nil {
		e.log.Warn().Err(err).Msg("Failed to compute equilibrium prior, skipping Black-Litterman")
		return nil
	}

	views := make([]View, 0, len(assets))
	for _, a := range assets {
		if a.ExpectedReturn != 0 {
			views = append(views, View{
				Type:       "absolute",
				AssetID:    a.ID,
				Return:     a.ExpectedReturn,
				Confidence: 0.5,
			})
		}
	}

	posterior, err := e.bl.BlendViews(equilibrium, views, covMatrix, ids, DefaultTau)
	if err != nil {
		e.log.Warn().Err(err).Msg("Failed to blend views, skipping Black-Litterman")
		return nil
	}

	return posterior
}

// combineBMA combines estimates by Bayesian model averaging: weights
// proportional to each method's inverse estimation variance, normalized to
// sum to 1. Methods with undefined variance get weight 0.
func combineBMA(estimates []Estimate) (float64, bool) {
	if len(estimates) == 0 {
		return 0, false
	}

	totalWeight := 0.0
	weighted := 0.0

	for _, est := range estimates {
		if est.Variance <= 0 || math.IsNaN(est.Variance) || math.IsInf(est.Variance, 0) {
			continue
		}
		if math.IsNaN(est.Value) || math.IsInf(est.Value, 0) {
			continue
		}
		w := 1.0 / est.Variance
		weighted += w * est.Value
		totalWeight += w
	}

	if totalWeight <= 0 {
		return 0, false
	}

	return weighted / totalWeight, true
}
