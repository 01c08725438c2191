package parlay

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
)

const (
	// StaleThreshold is the leg timestamp age beyond which odds data is
	// treated as stale.
	StaleThreshold = 15 * time.Minute

	// correlationScorePerLeg converts a positive_high tag count into the
	// combined correlation score.
	correlationScorePerLeg = 0.15

	// CorrelationScoreThreshold flags the ticket when the combined score
	// exceeds it.
	CorrelationScoreThreshold = 0.3

	// CombinedEVThresholdPct and LegEVThresholdPct are the value floors,
	// in percent.
	CombinedEVThresholdPct = 1.0
	LegEVThresholdPct      = 0.5
)

// injuryMarkers are the unresolved status markers inside an injury gate.
var injuryMarkers = []string{"Questionable", "Doubtful", "Out"}

// RiskAssessor evaluates a leg list across independent risk dimensions
// and produces a severity-ranked list plus one overall verdict.
type RiskAssessor struct {
	now func() time.Time
	log zerolog.Logger
}

func NewRiskAssessor(log zerolog.Logger) *RiskAssessor {
	return &RiskAssessor{
		now: time.Now,
		log: log.With().Str("component", "parlay_risk").Logger(),
	}
}

// Assess runs every check and derives the overall verdict. Each check
// appends zero or one Risk.
func (ra *RiskAssessor) Assess(legs []Leg, metrics *CombinedMetrics) domain.RiskAssessment {
	risks := make([]domain.Risk, 0, 6)

	if r, ok := ra.checkInjuries(legs); ok {
		risks = append(risks, r)
	}
	if r, ok := ra.checkCorrelation(legs); ok {
		risks = append(risks, r)
	}
	if r, ok := ra.checkMarketSignals(legs, metrics); ok {
		risks = append(risks, r)
	}
	risks = append(risks, ra.checkValue(legs, metrics)...)
	if r, ok := ra.checkStaleness(legs); ok {
		risks = append(risks, r)
	}

	overall := deriveVerdict(risks)

	ra.log.Debug().
		Int("num_risks", len(risks)).
		Str("overall", string(overall)).
		Msg("Assessed parlay risk")

	return domain.RiskAssessment{Risks: risks, Overall: overall}
}

// deriveVerdict maps the risk list to one verdict. Multiple medium
// concerns compound to high.
func deriveVerdict(risks []domain.Risk) domain.OverallRisk {
	mediums := 0
	highest := domain.SeverityLow
	hasRisk := false

	for _, r := range risks {
		hasRisk = true
		if r.Severity == domain.SeverityMedium {
			mediums++
		}
		if r.Severity > highest {
			highest = r.Severity
		}
	}

	switch {
	case highest == domain.SeverityCritical:
		return domain.OverallRejected
	case highest == domain.SeverityHigh:
		return domain.OverallHigh
	case mediums >= 2:
		return domain.OverallHigh
	case highest == domain.SeverityMedium && hasRisk:
		return domain.OverallMedium
	default:
		return domain.OverallLow
	}
}

func (ra *RiskAssessor) checkInjuries(legs []Leg) (domain.Risk, bool) {
	for _, leg := range legs {
		for _, gate := range leg.InjuryGates {
			for _, marker := range injuryMarkers {
				if strings.Contains(gate, marker) {
					return domain.Risk{
						Type:     domain.RiskInjury,
						Severity: domain.SeverityHigh,
						Message:  fmt.Sprintf("Unresolved injury status on %q: %s", leg.Selection, gate),
						Impact:   "Leg outcome depends on player availability",
					}, true
				}
			}
		}
	}
	return domain.Risk{}, false
}

func (ra *RiskAssessor) checkCorrelation(legs []Leg) (domain.Risk, bool) {
	positiveHigh := 0
	for _, leg := range legs {
		switch leg.CorrelationTag {
		case CorrelationNegative:
			return domain.Risk{
				Type:     domain.RiskCorrelation,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("Leg %q is negatively correlated with another leg", leg.Selection),
				Impact:   "Legs work against each other, parlay validity is suspect",
			}, true
		case CorrelationPositiveHigh:
			positiveHigh++
		}
	}

	score := correlationScorePerLeg * float64(positiveHigh)
	if score > CorrelationScoreThreshold || positiveHigh >= 2 {
		return domain.Risk{
			Type:     domain.RiskCorrelation,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("%d legs carry high positive correlation (score %.2f)", positiveHigh, score),
			Impact:   "True combined probability is lower than the independent product",
		}, true
	}
	return domain.Risk{}, false
}

// checkMarketSignals flags reverse line movement that contradicts the
// model's edge: sharp money moving the line away from a leg the model
// likes.
func (ra *RiskAssessor) checkMarketSignals(legs []Leg, metrics *CombinedMetrics) (domain.Risk, bool) {
	for i, leg := range legs {
		if leg.ReverseLineMovement == "" {
			continue
		}
		if metrics.Legs[i].EVPercent > 0 {
			return domain.Risk{
				Type:     domain.RiskMarketSignal,
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Reverse line movement against %q: %s", leg.Selection, leg.ReverseLineMovement),
				Impact:   "Market is moving against the model's edge",
			}, true
		}
	}
	return domain.Risk{}, false
}

func (ra *RiskAssessor) checkValue(legs []Leg, metrics *CombinedMetrics) []domain.Risk {
	risks := make([]domain.Risk, 0, 2)

	if metrics.EVPercent < CombinedEVThresholdPct {
		risks = append(risks, domain.Risk{
			Type:     domain.RiskValue,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Combined EV %.2f%% is below the %.1f%% floor", metrics.EVPercent, CombinedEVThresholdPct),
			Impact:   "Edge is too thin to justify the compounded variance",
		})
	}

	for i, leg := range legs {
		if metrics.Legs[i].EVPercent < LegEVThresholdPct {
			risks = append(risks, domain.Risk{
				Type:     domain.RiskValue,
				Severity: domain.SeverityLow,
				Message:  fmt.Sprintf("Leg %q EV %.2f%% is below the %.1f%% floor", leg.Selection, metrics.Legs[i].EVPercent, LegEVThresholdPct),
				Impact:   "A thin leg drags the whole ticket",
			})
			break
		}
	}

	return risks
}

func (ra *RiskAssessor) checkStaleness(legs []Leg) (domain.Risk, bool) {
	now := ra.now()
	for _, leg := range legs {
		if leg.Timestamp.IsZero() || now.Sub(leg.Timestamp) > StaleThreshold {
			return domain.Risk{
				Type:     domain.RiskDataStale,
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Odds data for %q is stale or missing a timestamp", leg.Selection),
				Impact:   "Current market price may differ from the evaluated price",
			}, true
		}
	}
	return domain.Risk{}, false
}
