package optimization

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/oddsforge/parlay-engine/internal/domain"
)

// riskParityPenalty keeps the weight sum pinned to 1 during the
// derivative-free search.
const riskParityPenalty = 1000.0

// riskParity finds the weight vector where each asset's marginal risk
// contribution matches the equal-risk target total_risk/n. The search
// minimizes the sum of squared deviations from that target under the
// box bounds, with the budget constraint enforced by penalty.
func (o *Optimizer) riskParity(
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	constraints Constraints,
	seed uint64,
) (*PortfolioMetrics, error) {
	n := len(ids)

	objective := func(x []float64) float64 {
		w := make([]float64, n)
		copy(w, x)
		constraints.clamp(w, ids)

		variance := 0.0
		sigmaW := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				sigmaW[i] += covMatrix[i][j] * w[j]
			}
			variance += w[i] * sigmaW[i]
		}
		if variance <= 0 {
			return math.Inf(1)
		}
		totalRisk := math.Sqrt(variance)
		target := totalRisk / float64(n)

		obj := 0.0
		for i := 0; i < n; i++ {
			contribution := w[i] * sigmaW[i] / totalRisk
			deviation := contribution - target
			obj += deviation * deviation
		}

		sum := 0.0
		for i := 0; i < n; i++ {
			sum += w[i]
		}
		obj += riskParityPenalty * (sum - 1.0) * (sum - 1.0)

		return obj
	}

	problem := optimize.Problem{Func: objective}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		return nil, domain.NewOptimizationError("risk parity search failed: %v", err)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.FunctionConvergence: true,
		optimize.GradientThreshold:   true,
	}
	if !successStatuses[result.Status] {
		return nil, domain.NewOptimizationError("risk parity search did not converge: status=%v", result.Status)
	}

	w := make([]float64, n)
	copy(w, result.X)
	constraints.clamp(w, ids)

	sum := 0.0
	for i := range w {
		sum += w[i]
	}
	if sum <= 0 {
		return nil, domain.NewOptimizationError("risk parity search produced a degenerate weight vector")
	}
	for i := range w {
		w[i] /= sum
	}
	if !constraints.feasible(w, ids, weightSumTolerance) {
		return nil, domain.NewOptimizationError("risk parity weights violate bounds after normalization")
	}

	weights := make(map[string]float64, n)
	for i, id := range ids {
		weights[id] = w[i]
	}

	return computeMetrics(weights, mu, covMatrix, ids, o.riskFreeRate, o.confidence, o.sim, seed)
}
