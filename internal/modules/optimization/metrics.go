package optimization

import (
	"math"

	"github.com/oddsforge/parlay-engine/internal/modules/simulation"
	"github.com/oddsforge/parlay-engine/pkg/formulas"
)

// DrawdownPathLength is the number of simulated scenario returns chained
// into a synthetic equity path for the drawdown estimate.
const DrawdownPathLength = 252

// PortfolioMetrics scores one candidate weight vector. Weights may
// include the "uncommitted" placeholder, in which case the committed
// weights sum to less than 1 and every risk figure shrinks accordingly.
type PortfolioMetrics struct {
	Weights              map[string]float64 `json:"weights"`
	ExpectedReturn       float64            `json:"expected_return"`
	Variance             float64            `json:"variance"`
	Volatility           float64            `json:"volatility"`
	SharpeRatio          float64            `json:"sharpe_ratio"`
	ValueAtRisk          float64            `json:"value_at_risk"`
	ConditionalVaR       float64            `json:"conditional_value_at_risk"`
	MaxDrawdownEstimate  float64            `json:"max_drawdown_estimate"`
	DiversificationRatio float64            `json:"diversification_ratio"`
}

// computeMetrics scores the weight vector against the asset universe.
// Any weight assigned to an id outside ids (the uncommitted placeholder)
// earns zero return at zero volatility.
func computeMetrics(
	weights map[string]float64,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	riskFreeRate float64,
	confidence float64,
	sim *simulation.Simulator,
	seed uint64,
) (*PortfolioMetrics, error) {
	n := len(ids)
	w := make([]float64, n)
	for i, id := range ids {
		w[i] = weights[id]
	}

	expectedReturn := 0.0
	for i, id := range ids {
		expectedReturn += w[i] * mu[id]
	}

	variance := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * covMatrix[i][j]
		}
	}
	if variance < 0 {
		variance = 0
	}
	volatility := math.Sqrt(variance)

	simResult, err := sim.SimulatePortfolio(mu, covMatrix, weights, ids, seed)
	if err != nil {
		return nil, err
	}

	pathLen := DrawdownPathLength
	if pathLen > len(simResult.Returns) {
		pathLen = len(simResult.Returns)
	}

	weightedVol := 0.0
	for i := range ids {
		weightedVol += w[i] * math.Sqrt(covMatrix[i][i])
	}
	diversification := 0.0
	if volatility > 0 {
		diversification = weightedVol / volatility
	}

	return &PortfolioMetrics{
		Weights:              weights,
		ExpectedReturn:       expectedReturn,
		Variance:             variance,
		Volatility:           volatility,
		SharpeRatio:          formulas.SharpeRatio(expectedReturn, riskFreeRate, volatility),
		ValueAtRisk:          formulas.ParametricVaR(volatility, confidence),
		ConditionalVaR:       formulas.CalculateCVaR(simResult.Returns, confidence),
		MaxDrawdownEstimate:  formulas.MaxDrawdownFromReturns(simResult.Returns[:pathLen]),
		DiversificationRatio: diversification,
	}, nil
}
