// Package parlay models multi-leg wagers, assesses their risk profile
// across independent dimensions and turns the verdict into actionable
// staking recommendations.
package parlay

import (
	"time"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/pkg/formulas"
)

// CorrelationTag is the closed classification of a leg's relationship
// to the rest of the ticket. Callers map upstream free-text notes into
// this enum before evaluation.
type CorrelationTag string

const (
	CorrelationNone         CorrelationTag = "none"
	CorrelationPositiveHigh CorrelationTag = "positive_high"
	CorrelationNegative     CorrelationTag = "negative"
)

// Leg is one wager inside a parlay. Price is American odds.
type Leg struct {
	MarketType          string         `json:"market_type"`
	Selection           string         `json:"selection"`
	Price               int            `json:"price"`
	ModelProbability    float64        `json:"model_probability"`
	CorrelationTag      CorrelationTag `json:"correlation_tag"`
	InjuryGates         []string       `json:"injury_gates,omitempty"`
	ReverseLineMovement string         `json:"reverse_line_movement,omitempty"`
	Timestamp           time.Time      `json:"timestamp"`
}

// DecimalOdds converts the leg price to decimal odds.
func (l Leg) DecimalOdds() (float64, error) {
	return formulas.AmericanToDecimal(float64(l.Price))
}

// Validate checks the numeric fields a leg must carry.
func (l Leg) Validate() error {
	if l.Price == 0 {
		return domain.NewInputError("leg %q has no price", l.Selection)
	}
	if l.ModelProbability <= 0 || l.ModelProbability >= 1 {
		return domain.NewInputError("leg %q model probability %.4f outside (0,1)", l.Selection, l.ModelProbability)
	}
	switch l.CorrelationTag {
	case "", CorrelationNone, CorrelationPositiveHigh, CorrelationNegative:
	default:
		return domain.NewInputError("leg %q has unknown correlation tag %q", l.Selection, l.CorrelationTag)
	}
	return nil
}

// LegMetrics carries the per-leg derived figures used by the assessor.
type LegMetrics struct {
	DecimalOdds        float64 `json:"decimal_odds"`
	ImpliedProbability float64 `json:"implied_probability"`
	EVPercent          float64 `json:"ev_percent"`
}

// CombinedMetrics scores the whole ticket. Decimal odds multiply across
// legs and so does the model probability, treating leg outcomes as
// independent for the combined figure.
type CombinedMetrics struct {
	DecimalOdds        float64      `json:"decimal_odds"`
	AmericanOdds       float64      `json:"american_odds"`
	ImpliedProbability float64      `json:"implied_probability"`
	ModelProbability   float64      `json:"model_probability"`
	EVPercent          float64      `json:"ev_percent"`
	KellyFraction      float64      `json:"kelly_fraction"`
	Legs               []LegMetrics `json:"legs"`
}

// Combine derives the combined ticket metrics from validated legs.
func Combine(legs []Leg) (*CombinedMetrics, error) {
	if len(legs) < 2 {
		return nil, domain.NewInputError("parlay needs at least 2 legs, got %d", len(legs))
	}

	combinedDecimal := 1.0
	combinedProb := 1.0
	legMetrics := make([]LegMetrics, len(legs))

	for i, leg := range legs {
		if err := leg.Validate(); err != nil {
			return nil, err
		}
		decimal, err := leg.DecimalOdds()
		if err != nil {
			return nil, err
		}

		combinedDecimal *= decimal
		combinedProb *= leg.ModelProbability

		legMetrics[i] = LegMetrics{
			DecimalOdds:        decimal,
			ImpliedProbability: formulas.ImpliedProbability(decimal),
			EVPercent:          formulas.EVPercent(decimal, leg.ModelProbability),
		}
	}

	american, err := formulas.DecimalToAmerican(combinedDecimal)
	if err != nil {
		return nil, err
	}

	return &CombinedMetrics{
		DecimalOdds:        combinedDecimal,
		AmericanOdds:       american,
		ImpliedProbability: formulas.ImpliedProbability(combinedDecimal),
		ModelProbability:   combinedProb,
		EVPercent:          formulas.EVPercent(combinedDecimal, combinedProb),
		KellyFraction:      formulas.KellyFraction(combinedDecimal, combinedProb),
		Legs:               legMetrics,
	}, nil
}
