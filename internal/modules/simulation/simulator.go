// Package simulation generates correlated return scenarios by Monte Carlo.
//
// Shocks are drawn from a multivariate normal built from the Cholesky
// factor of the covariance matrix, so the simulated cross-asset
// correlation structure matches the input covariance. A fixed seed
// reproduces the exact same scenario set.
package simulation

import (
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/pkg/formulas"
)

// DefaultNumSimulations is the scenario count used when the caller does
// not specify one.
const DefaultNumSimulations = 10000

// Result holds the simulated portfolio return distribution and the tail
// statistics derived from it.
type Result struct {
	Returns      []float64 `json:"-"`
	ExpectedMean float64   `json:"expected_mean"`
	StdDev       float64   `json:"std_dev"`
	VaR95        float64   `json:"var_95"`
	CVaR95       float64   `json:"cvar_95"`
	NumScenarios int       `json:"num_scenarios"`
}

// Simulator draws correlated return scenarios for a basket of assets.
type Simulator struct {
	numSimulations int
	log            zerolog.Logger
}

func NewSimulator(numSimulations int, log zerolog.Logger) *Simulator {
	if numSimulations <= 0 {
		numSimulations = DefaultNumSimulations
	}
	return &Simulator{
		numSimulations: numSimulations,
		log:            log.With().Str("component", "simulation").Logger(),
	}
}

// SimulatePortfolio generates portfolio return scenarios for the given
// weights. Each scenario draws a standard normal vector z, colors it with
// the Cholesky factor L of the covariance matrix and adds the expected
// returns: r = μ + Lz. The portfolio return is the weighted sum.
//
// The same seed always produces the same scenario set.
func (s *Simulator) SimulatePortfolio(
	expectedReturns map[string]float64,
	covMatrix [][]float64,
	weights map[string]float64,
	ids []string,
	seed uint64,
) (*Result, error) {
	n := len(ids)
	if n == 0 {
		return nil, domain.NewInputError("no assets to simulate")
	}
	if len(covMatrix) != n {
		return nil, domain.NewInputError("covariance matrix size %d does not match %d assets", len(covMatrix), n)
	}

	mu := make([]float64, n)
	w := make([]float64, n)
	for i, id := range ids {
		mu[i] = expectedReturns[id]
		w[i] = weights[id]
	}

	chol, err := factorize(covMatrix)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(seed, seed)
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	var lower mat.TriDense
	chol.LTo(&lower)

	z := mat.NewVecDense(n, nil)
	shock := mat.NewVecDense(n, nil)

	returns := make([]float64, s.numSimulations)
	for sim := 0; sim < s.numSimulations; sim++ {
		for i := 0; i < n; i++ {
			z.SetVec(i, std.Rand())
		}
		shock.MulVec(&lower, z)

		portfolioReturn := 0.0
		for i := 0; i < n; i++ {
			portfolioReturn += w[i] * (mu[i] + shock.AtVec(i))
		}
		returns[sim] = portfolioReturn
	}

	result := &Result{
		Returns:      returns,
		ExpectedMean: formulas.Mean(returns),
		StdDev:       formulas.StdDev(returns),
		VaR95:        valueAtRisk(returns, 0.95),
		CVaR95:       formulas.CalculateCVaR(returns, 0.95),
		NumScenarios: s.numSimulations,
	}

	s.log.Debug().
		Int("scenarios", s.numSimulations).
		Float64("mean", result.ExpectedMean).
		Float64("cvar_95", result.CVaR95).
		Msg("Simulated portfolio returns")

	return result, nil
}

// factorize computes the Cholesky factor of the covariance matrix,
// rejecting non-PSD inputs.
func factorize(covMatrix [][]float64) (*mat.Cholesky, error) {
	n := len(covMatrix)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(covMatrix[i]) != n {
			return nil, domain.NewCovarianceError("covariance matrix is not square")
		}
		for j := i; j < n; j++ {
			sym.SetSym(i, j, covMatrix[i][j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, domain.NewCovarianceError("covariance matrix is not positive semi-definite")
	}
	return &chol, nil
}

// valueAtRisk returns the loss magnitude at the given confidence level
// from an empirical return distribution. A positive value is a loss.
func valueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return -sorted[idx]
}
