package risk

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/oddsforge/parlay-engine/internal/domain"
)

// Constants for covariance estimation
const (
	DefaultCorrelation = 0.2 // assumed pairwise correlation when the caller supplies none
	DefaultShrinkage   = 0.2 // fallback shrinkage intensity when no sample size is known
	MinObservations    = 2
)

// CovarianceBuilder builds shrunk covariance matrices from asset inputs or
// historical return series.
type CovarianceBuilder struct {
	defaultCorrelation float64
	log                zerolog.Logger
}

// NewCovarianceBuilder creates a new covariance builder.
func NewCovarianceBuilder(log zerolog.Logger) *CovarianceBuilder {
	return &CovarianceBuilder{
		defaultCorrelation: DefaultCorrelation,
		log:                log.With().Str("component", "covariance").Logger(),
	}
}

// FromAssets builds a covariance matrix from per-asset volatilities and
// pairwise correlations. Missing correlations default to DefaultCorrelation.
//
// Raw matrix: Σ_ij = ρ_ij * σ_i * σ_j, diagonal σ_i². Shrinkage is then
// applied toward mean(diag)*I. If shrinkage is nil the intensity falls back
// to DefaultShrinkage.
func (cb *CovarianceBuilder) FromAssets(assets []domain.Asset, shrinkage *float64) ([][]float64, error) {
	n := len(assets)
	if n < 2 {
		return nil, domain.NewInputError("need at least 2 assets, got %d", n)
	}

	for _, a := range assets {
		if a.Volatility < 0 || math.IsNaN(a.Volatility) {
			return nil, domain.NewInputError("asset %s has invalid volatility %v", a.ID, a.Volatility)
		}
	}

	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		raw[i][i] = assets[i].Volatility * assets[i].Volatility
		for j := i + 1; j < n; j++ {
			rho := cb.lookupCorrelation(assets[i], assets[j])
			if rho < -1 || rho > 1 {
				return nil, domain.NewInputError("correlation between %s and %s out of range: %v",
					assets[i].ID, assets[j].ID, rho)
			}
			cov := rho * assets[i].Volatility * assets[j].Volatility
			raw[i][j] = cov
			raw[j][i] = cov
		}
	}

	lambda := DefaultShrinkage
	if shrinkage != nil {
		lambda = clampUnit(*shrinkage)
	}

	shrunk := shrinkToward(raw, lambda)

	cb.log.Debug().
		Int("num_assets", n).
		Float64("shrinkage", lambda).
		Msg("Built covariance matrix from asset inputs")

	return shrunk, nil
}

// FromHistory builds a covariance matrix from historical return series.
// All series must share the same length. Shrinkage intensity, when not
// supplied, is derived from the asset count and sample size: more assets
// relative to observations means heavier shrinkage.
func (cb *CovarianceBuilder) FromHistory(returns map[string][]float64, ids []string, shrinkage *float64) ([][]float64, error) {
	n := len(ids)
	if n < 2 {
		return nil, domain.NewInputError("need at least 2 assets, got %d", n)
	}

	var numObs int
	for _, id := range ids {
		series, ok := returns[id]
		if !ok {
			return nil, domain.NewInputError("missing return series for %s", id)
		}
		if numObs == 0 {
			numObs = len(series)
		}
		if len(series) != numObs {
			return nil, domain.NewInputError("inconsistent series length for %s: %d != %d", id, len(series), numObs)
		}
	}
	if numObs < MinObservations {
		return nil, domain.NewInputError("need at least %d observations, got %d", MinObservations, numObs)
	}

	raw := sampleCovariance(returns, ids, numObs)

	lambda := shrinkageIntensity(n, numObs)
	if shrinkage != nil {
		lambda = clampUnit(*shrinkage)
	}

	shrunk := shrinkToward(raw, lambda)

	cb.log.Debug().
		Int("num_assets", n).
		Int("num_observations", numObs).
		Float64("shrinkage", lambda).
		Msg("Built covariance matrix from history")

	return shrunk, nil
}

func (cb *CovarianceBuilder) lookupCorrelation(a, b domain.Asset) float64 {
	if rho, ok := a.Correlations[b.ID]; ok {
		return rho
	}
	if rho, ok := b.Correlations[a.ID]; ok {
		return rho
	}
	return cb.defaultCorrelation
}

// sampleCovariance computes the sample covariance matrix (N-1 denominator).
func sampleCovariance(returns map[string][]float64, ids []string, numObs int) [][]float64 {
	n := len(ids)

	means := make([]float64, n)
	for i, id := range ids {
		sum := 0.0
		for _, r := range returns[id] {
			sum += r
		}
		means[i] = sum / float64(numObs)
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ri := returns[ids[i]]
		for j := i; j < n; j++ {
			rj := returns[ids[j]]
			s := 0.0
			for k := 0; k < numObs; k++ {
				s += (ri[k] - means[i]) * (rj[k] - means[j])
			}
			val := s / float64(numObs-1)
			cov[i][j] = val
			cov[j][i] = val
		}
	}

	return cov
}

// shrinkToward blends the sample matrix toward mean(diag)*I:
//
//	Σ' = (1-λ)Σ + λ * mean(diag(Σ)) * I
//
// Symmetry is preserved by construction.
func shrinkToward(cov [][]float64, lambda float64) [][]float64 {
	n := len(cov)

	avgVar := 0.0
	for i := 0; i < n; i++ {
		avgVar += cov[i][i]
	}
	avgVar /= float64(n)

	shrunk := make([][]float64, n)
	for i := range shrunk {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			target := 0.0
			if i == j {
				target = avgVar
			}
			shrunk[i][j] = (1.0-lambda)*cov[i][j] + lambda*target
		}
	}

	return shrunk
}

// shrinkageIntensity derives λ from the asset count and sample size.
// With few observations per asset the estimate is noisy and gets pulled
// harder toward the diagonal target.
func shrinkageIntensity(numAssets, numObs int) float64 {
	lambda := float64(numAssets) / (float64(numAssets) + float64(numObs)/2.0)
	return clampUnit(lambda)
}

// EnsurePSD verifies the matrix admits a Cholesky factorization. Matrices
// that fail are rejected with a CovarianceError rather than clipped.
func EnsurePSD(cov [][]float64) error {
	n := len(cov)
	if n == 0 {
		return domain.NewCovarianceError("empty matrix")
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return domain.NewCovarianceError("matrix is not square: row %d has %d columns", i, len(cov[i]))
		}
		for j := i; j < n; j++ {
			if math.Abs(cov[i][j]-cov[j][i]) > 1e-12 {
				return domain.NewCovarianceError("matrix is not symmetric at (%d,%d)", i, j)
			}
			sym.SetSym(i, j, cov[i][j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return domain.NewCovarianceError("matrix is not positive-semi-definite")
	}

	return nil
}

func clampUnit(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
