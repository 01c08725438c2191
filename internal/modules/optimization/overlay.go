package optimization

import (
	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/modules/simulation"
)

// UncommittedID names the zero-volatility placeholder that absorbs
// capital trimmed by the overlay.
const UncommittedID = "uncommitted"

// Limits are the overlay caps. A zero value disables that cap.
type Limits struct {
	MaxVaR           float64            `json:"max_var"`
	MaxDrawdown      float64            `json:"max_drawdown"`
	MaxConcentration float64            `json:"max_concentration"`
	Liquidity        map[string]float64 `json:"liquidity,omitempty"`
}

// RiskOverlay enforces post-selection caps in a fixed order: VaR cap,
// drawdown cap, concentration cap, liquidity cap. A violated cap shifts
// the violating fraction of capital to the uncommitted placeholder and
// metrics are recomputed before the next cap is checked, so later caps
// see the already-adjusted weights.
type RiskOverlay struct {
	riskFreeRate float64
	confidence   float64
	sim          *simulation.Simulator
	log          zerolog.Logger
}

func NewRiskOverlay(riskFreeRate, confidence float64, log zerolog.Logger) *RiskOverlay {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return &RiskOverlay{
		riskFreeRate: riskFreeRate,
		confidence:   confidence,
		sim:          simulation.NewSimulator(CandidateScenarios, log),
		log:          log.With().Str("component", "risk_overlay").Logger(),
	}
}

// Apply trims the selected portfolio against the limits. The portfolio
// is never rejected outright; capital moves to the uncommitted
// placeholder instead.
func (ro *RiskOverlay) Apply(
	selected *PortfolioMetrics,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	limits Limits,
	seed uint64,
) (*PortfolioMetrics, error) {
	current := selected

	steps := []func(*PortfolioMetrics) float64{
		func(m *PortfolioMetrics) float64 { return ro.varScale(m, limits) },
		func(m *PortfolioMetrics) float64 { return ro.drawdownScale(m, limits) },
	}
	for _, step := range steps {
		scale := step(current)
		if scale >= 1 {
			continue
		}
		adjusted, err := ro.rescale(current, scale, mu, covMatrix, ids, seed)
		if err != nil {
			return nil, err
		}
		current = adjusted
	}

	adjusted, err := ro.capPerAsset(current, mu, covMatrix, ids, limits, seed)
	if err != nil {
		return nil, err
	}
	current = adjusted

	return current, nil
}

func (ro *RiskOverlay) varScale(m *PortfolioMetrics, limits Limits) float64 {
	if limits.MaxVaR <= 0 || m.ValueAtRisk <= limits.MaxVaR {
		return 1
	}
	ro.log.Info().
		Float64("var", m.ValueAtRisk).
		Float64("cap", limits.MaxVaR).
		Msg("VaR cap breached, trimming exposure")
	return limits.MaxVaR / m.ValueAtRisk
}

func (ro *RiskOverlay) drawdownScale(m *PortfolioMetrics, limits Limits) float64 {
	if limits.MaxDrawdown <= 0 || m.MaxDrawdownEstimate <= limits.MaxDrawdown {
		return 1
	}
	ro.log.Info().
		Float64("drawdown", m.MaxDrawdownEstimate).
		Float64("cap", limits.MaxDrawdown).
		Msg("Drawdown cap breached, trimming exposure")
	return limits.MaxDrawdown / m.MaxDrawdownEstimate
}

// rescale multiplies every committed weight by scale and parks the
// freed fraction in the uncommitted placeholder.
func (ro *RiskOverlay) rescale(
	m *PortfolioMetrics,
	scale float64,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	seed uint64,
) (*PortfolioMetrics, error) {
	weights := make(map[string]float64, len(m.Weights)+1)
	committed := 0.0
	for _, id := range ids {
		w := m.Weights[id] * scale
		weights[id] = w
		committed += w
	}
	weights[UncommittedID] = 1.0 - committed

	return computeMetrics(weights, mu, covMatrix, ids, ro.riskFreeRate, ro.confidence, ro.sim, seed)
}

// capPerAsset applies the concentration cap, then the liquidity cap, to
// each committed weight. Excess moves to the uncommitted placeholder.
func (ro *RiskOverlay) capPerAsset(
	m *PortfolioMetrics,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	limits Limits,
	seed uint64,
) (*PortfolioMetrics, error) {
	current := m

	if limits.MaxConcentration > 0 {
		adjusted, trimmed, err := ro.applyCap(current, mu, covMatrix, ids, seed, func(string) float64 {
			return limits.MaxConcentration
		})
		if err != nil {
			return nil, err
		}
		if trimmed {
			ro.log.Info().Float64("cap", limits.MaxConcentration).Msg("Concentration cap breached, trimming positions")
		}
		current = adjusted
	}

	if len(limits.Liquidity) > 0 {
		adjusted, trimmed, err := ro.applyCap(current, mu, covMatrix, ids, seed, func(id string) float64 {
			if limit, ok := limits.Liquidity[id]; ok && limit > 0 {
				return limit
			}
			return 1.0
		})
		if err != nil {
			return nil, err
		}
		if trimmed {
			ro.log.Info().Msg("Liquidity cap breached, trimming positions")
		}
		current = adjusted
	}

	return current, nil
}

func (ro *RiskOverlay) applyCap(
	m *PortfolioMetrics,
	mu map[string]float64,
	covMatrix [][]float64,
	ids []string,
	seed uint64,
	capFor func(id string) float64,
) (*PortfolioMetrics, bool, error) {
	trimmed := false
	weights := make(map[string]float64, len(m.Weights)+1)
	uncommitted := m.Weights[UncommittedID]

	for _, id := range ids {
		w := m.Weights[id]
		limit := capFor(id)
		if w > limit {
			uncommitted += w - limit
			w = limit
			trimmed = true
		}
		weights[id] = w
	}
	if uncommitted > 0 {
		weights[UncommittedID] = uncommitted
	}

	if !trimmed {
		return m, false, nil
	}

	adjusted, err := computeMetrics(weights, mu, covMatrix, ids, ro.riskFreeRate, ro.confidence, ro.sim, seed)
	if err != nil {
		return nil, false, err
	}
	return adjusted, true, nil
}
