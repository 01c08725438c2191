// Package optimization searches feasible portfolio weight vectors under
// box and budget constraints by Monte Carlo frontier sampling, then
// selects an optimum for the requested objective. A post-selection risk
// overlay trims the result against VaR, drawdown, concentration and
// liquidity caps.
package optimization

import (
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/internal/modules/simulation"
)

// Objective selects the optimum from the efficient frontier.
type Objective string

const (
	ObjectiveMaxSharpe   Objective = "max_sharpe"
	ObjectiveMinVariance Objective = "min_variance"
	ObjectiveMaxReturn   Objective = "max_return"
	ObjectiveRiskParity  Objective = "risk_parity"
)

const (
	// DefaultFrontierSamples is the number of candidate weight vectors
	// drawn per optimization run.
	DefaultFrontierSamples = 2000

	// RetryBudgetPerSample bounds resampling when renormalization keeps
	// pushing a draw outside its box bounds.
	RetryBudgetPerSample = 50

	// CandidateScenarios is the per-candidate simulation depth used for
	// tail metrics while scanning the frontier.
	CandidateScenarios = 1000

	weightSumTolerance = 1e-6
)

// Result pairs the selected portfolio with the frontier it came from.
type Result struct {
	Selected *PortfolioMetrics   `json:"selected"`
	Frontier []*PortfolioMetrics `json:"frontier"`
}

// Optimizer runs the Monte Carlo frontier search.
type Optimizer struct {
	numSamples   int
	riskFreeRate float64
	confidence   float64
	sim          *simulation.Simulator
	log          zerolog.Logger
}

func NewOptimizer(numSamples int, riskFreeRate, confidence float64, log zerolog.Logger) *Optimizer {
	if numSamples <= 0 {
		numSamples = DefaultFrontierSamples
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return &Optimizer{
		numSamples:   numSamples,
		riskFreeRate: riskFreeRate,
		confidence:   confidence,
		sim:          simulation.NewSimulator(CandidateScenarios, log),
		log:          log.With().Str("component", "optimization").Logger(),
	}
}

// Optimize samples feasible weight vectors, assembles the efficient
// frontier and picks the optimum for the objective. The same seed always
// selects the same portfolio.
func (o *Optimizer) Optimize(
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	constraints Constraints,
	objective Objective,
	seed uint64,
) (*Result, error) {
	n := len(ids)
	if n < 2 {
		return nil, domain.NewOptimizationError("need at least 2 assets, got %d", n)
	}
	if len(covMatrix) != n {
		return nil, domain.NewOptimizationError("covariance matrix size %d does not match %d assets", len(covMatrix), n)
	}
	for _, id := range ids {
		if _, ok := mu[id]; !ok {
			return nil, domain.NewOptimizationError("missing expected return for %s", id)
		}
	}

	candidates, err := o.sampleCandidates(mu, covMatrix, ids, constraints, seed)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.NewOptimizationError("no feasible weight vector found after %d samples", o.numSamples)
	}

	front := &frontier{}
	for _, c := range candidates {
		front.admit(c)
	}

	selected, err := o.selectByObjective(front.candidates, mu, covMatrix, ids, constraints, objective, seed)
	if err != nil {
		return nil, err
	}

	o.log.Debug().
		Int("samples", o.numSamples).
		Int("frontier_size", len(front.candidates)).
		Str("objective", string(objective)).
		Float64("volatility", selected.Volatility).
		Msg("Selected portfolio")

	return &Result{Selected: selected, Frontier: front.candidates}, nil
}

// sampleCandidates fans the sample budget out across workers. Each
// sample index derives its own seed, so results do not depend on
// goroutine interleaving.
func (o *Optimizer) sampleCandidates(
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	constraints Constraints,
	seed uint64,
) ([]*PortfolioMetrics, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > o.numSamples {
		workers = o.numSamples
	}

	type indexed struct {
		idx     int
		metrics *PortfolioMetrics
	}

	results := make(chan indexed, o.numSamples)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	chunk := (o.numSamples + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > o.numSamples {
			end = o.numSamples
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for s := start; s < end; s++ {
				sampleSeed := seed + uint64(s)
				weights, ok := sampleWeights(ids, constraints, sampleSeed)
				if !ok {
					continue
				}
				metrics, err := computeMetrics(weights, mu, covMatrix, ids, o.riskFreeRate, o.confidence, o.sim, sampleSeed)
				if err != nil {
					errs <- err
					return
				}
				results <- indexed{idx: s, metrics: metrics}
			}
		}(start, end)
	}

	wg.Wait()
	close(results)
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}

	collected := make([]indexed, 0, o.numSamples)
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	candidates := make([]*PortfolioMetrics, len(collected))
	for i, r := range collected {
		candidates[i] = r.metrics
	}
	return candidates, nil
}

// sampleWeights draws one feasible weight vector: uniform within each
// asset's box bound, renormalized to sum to 1, resampled when the
// renormalization violates a bound.
func sampleWeights(ids []string, constraints Constraints, seed uint64) (map[string]float64, bool) {
	n := len(ids)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	for attempt := 0; attempt < RetryBudgetPerSample; attempt++ {
		w := make([]float64, n)
		sum := 0.0
		for i, id := range ids {
			lo, hi := constraints.boundsFor(id)
			w[i] = lo + rng.Float64()*(hi-lo)
			sum += w[i]
		}
		if sum <= 0 {
			continue
		}
		for i := range w {
			w[i] /= sum
		}
		if !constraints.feasible(w, ids, weightSumTolerance) {
			continue
		}

		weights := make(map[string]float64, n)
		for i, id := range ids {
			weights[id] = w[i]
		}
		return weights, true
	}
	return nil, false
}

func (o *Optimizer) selectByObjective(
	front []*PortfolioMetrics,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	constraints Constraints,
	objective Objective,
	seed uint64,
) (*PortfolioMetrics, error) {
	switch objective {
	case ObjectiveMaxSharpe:
		return argBest(front, func(a, b *PortfolioMetrics) bool { return a.SharpeRatio > b.SharpeRatio }), nil
	case ObjectiveMinVariance:
		return argBest(front, func(a, b *PortfolioMetrics) bool { return a.Variance < b.Variance }), nil
	case ObjectiveMaxReturn:
		return argBest(front, func(a, b *PortfolioMetrics) bool { return a.ExpectedReturn > b.ExpectedReturn }), nil
	case ObjectiveRiskParity:
		return o.riskParity(mu, covMatrix, ids, constraints, seed)
	default:
		return nil, domain.NewOptimizationError("unknown objective %q", string(objective))
	}
}

func argBest(front []*PortfolioMetrics, better func(a, b *PortfolioMetrics) bool) *PortfolioMetrics {
	best := front[0]
	for _, c := range front[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best
}
