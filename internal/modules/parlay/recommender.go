package parlay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
)

const (
	// DefaultKellyCap scales the raw Kelly fraction down to quarter-Kelly.
	DefaultKellyCap = 0.25

	// DefaultMaxStakeFraction is the absolute bankroll ceiling.
	DefaultMaxStakeFraction = 0.10

	// MaxRecommendations truncates the sorted list.
	MaxRecommendations = 5
)

// EV tier thresholds, in percent.
const (
	evStrongPct   = 15.0
	evModeratePct = 5.0
)

// RecommendationEngine turns combined metrics and a risk verdict into a
// prioritized recommendation list, a single primary action and a capped
// Kelly stake.
type RecommendationEngine struct {
	kellyCap         float64
	maxStakeFraction float64
	log              zerolog.Logger
}

func NewRecommendationEngine(kellyCap, maxStakeFraction float64, log zerolog.Logger) *RecommendationEngine {
	if kellyCap <= 0 || kellyCap > 1 {
		kellyCap = DefaultKellyCap
	}
	if maxStakeFraction <= 0 || maxStakeFraction > 1 {
		maxStakeFraction = DefaultMaxStakeFraction
	}
	return &RecommendationEngine{
		kellyCap:         kellyCap,
		maxStakeFraction: maxStakeFraction,
		log:              log.With().Str("component", "recommendations").Logger(),
	}
}

// Stake derives the recommended bankroll fraction from the raw Kelly
// fraction.
func (re *RecommendationEngine) Stake(metrics *CombinedMetrics) domain.KellyStake {
	raw := metrics.KellyFraction
	recommended := raw * re.kellyCap
	capApplied := false
	if recommended > re.maxStakeFraction {
		recommended = re.maxStakeFraction
		capApplied = true
	}
	return domain.KellyStake{
		RawFraction:         raw,
		RecommendedFraction: recommended,
		CapApplied:          capApplied,
	}
}

// Recommend builds the recommendation set. A REJECTED verdict yields a
// single critical entry and nothing else.
func (re *RecommendationEngine) Recommend(
	metrics *CombinedMetrics,
	assessment domain.RiskAssessment,
	stake domain.KellyStake,
) domain.RecommendationSet {
	if assessment.Overall == domain.OverallRejected {
		return domain.RecommendationSet{
			Recommendations: []domain.Recommendation{{
				Priority: domain.SeverityCritical,
				Type:     "verdict",
				Message:  "DO NOT BET: a critical risk invalidates this parlay",
				Action:   "Remove the conflicting legs and re-evaluate",
			}},
			PrimaryAction: "Do not place this bet",
		}
	}

	recs := make([]domain.Recommendation, 0, 8)
	recs = append(recs, re.evRecommendation(metrics))
	recs = append(recs, re.stakeRecommendation(stake))
	if r, ok := re.riskTierRecommendation(assessment); ok {
		recs = append(recs, r)
	}
	recs = append(recs, re.riskActions(assessment)...)

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}

	primary := re.primaryAction(metrics, assessment, stake)

	re.log.Debug().
		Int("num_recommendations", len(recs)).
		Str("primary_action", primary).
		Msg("Built recommendations")

	return domain.RecommendationSet{Recommendations: recs, PrimaryAction: primary}
}

func (re *RecommendationEngine) evRecommendation(metrics *CombinedMetrics) domain.Recommendation {
	ev := metrics.EVPercent
	switch {
	case ev > evStrongPct:
		return domain.Recommendation{
			Priority: domain.SeverityHigh,
			Type:     "value",
			Message:  fmt.Sprintf("Strong edge: combined EV %.1f%%", ev),
			Action:   "Bet within the recommended stake",
		}
	case ev > evModeratePct:
		return domain.Recommendation{
			Priority: domain.SeverityMedium,
			Type:     "value",
			Message:  fmt.Sprintf("Moderate edge: combined EV %.1f%%", ev),
			Action:   "Bet with reduced sizing",
		}
	case ev > 0:
		return domain.Recommendation{
			Priority: domain.SeverityLow,
			Type:     "value",
			Message:  fmt.Sprintf("Marginal edge: combined EV %.1f%%", ev),
			Action:   "Consider passing, the edge barely clears the vig",
		}
	default:
		return domain.Recommendation{
			Priority: domain.SeverityHigh,
			Type:     "value",
			Message:  fmt.Sprintf("Negative EV %.1f%%, this parlay loses money in expectation", ev),
			Action:   "Avoid this bet",
		}
	}
}

func (re *RecommendationEngine) stakeRecommendation(stake domain.KellyStake) domain.Recommendation {
	if stake.RecommendedFraction <= 0 {
		return domain.Recommendation{
			Priority: domain.SeverityMedium,
			Type:     "stake",
			Message:  "Kelly sizing suggests no stake at these odds",
			Action:   "Pass or wait for a better price",
		}
	}
	msg := fmt.Sprintf("Recommended stake: %.1f%% of bankroll (quarter-Kelly of %.1f%%)",
		stake.RecommendedFraction*100, stake.RawFraction*100)
	if stake.CapApplied {
		msg += ", capped at the bankroll ceiling"
	}
	return domain.Recommendation{
		Priority: domain.SeverityMedium,
		Type:     "stake",
		Message:  msg,
		Action:   fmt.Sprintf("Stake %.1f%% of bankroll", stake.RecommendedFraction*100),
	}
}

func (re *RecommendationEngine) riskTierRecommendation(assessment domain.RiskAssessment) (domain.Recommendation, bool) {
	switch assessment.Overall {
	case domain.OverallHigh:
		return domain.Recommendation{
			Priority: domain.SeverityHigh,
			Type:     "risk",
			Message:  "Overall risk is HIGH",
			Action:   "Reduce stake or resolve the flagged risks first",
		}, true
	case domain.OverallMedium:
		return domain.Recommendation{
			Priority: domain.SeverityMedium,
			Type:     "risk",
			Message:  "Overall risk is MEDIUM",
			Action:   "Review the flagged risks before betting",
		}, true
	}
	return domain.Recommendation{}, false
}

// riskActions emits one actionable item per flagged risk type.
func (re *RecommendationEngine) riskActions(assessment domain.RiskAssessment) []domain.Recommendation {
	actions := make([]domain.Recommendation, 0, 3)
	seen := make(map[domain.RiskType]bool)

	for _, r := range assessment.Risks {
		if seen[r.Type] {
			continue
		}
		seen[r.Type] = true

		switch r.Type {
		case domain.RiskInjury:
			actions = append(actions, domain.Recommendation{
				Priority: r.Severity,
				Type:     "injury",
				Message:  r.Message,
				Action:   "Wait for injury confirmation before betting",
			})
		case domain.RiskDataStale:
			actions = append(actions, domain.Recommendation{
				Priority: r.Severity,
				Type:     "data",
				Message:  r.Message,
				Action:   "Verify current odds before betting",
			})
		case domain.RiskMarketSignal:
			actions = append(actions, domain.Recommendation{
				Priority: r.Severity,
				Type:     "market",
				Message:  r.Message,
				Action:   "Check where the sharp money is going",
			})
		}
	}
	return actions
}

// primaryAction derives the single headline action by fixed precedence:
// rejection, injury wait, negative-EV avoidance, high-risk reduction,
// Kelly-sized suggestion, minimum stake or pass.
func (re *RecommendationEngine) primaryAction(
	metrics *CombinedMetrics,
	assessment domain.RiskAssessment,
	stake domain.KellyStake,
) string {
	if assessment.Overall == domain.OverallRejected {
		return "Do not place this bet"
	}
	for _, r := range assessment.Risks {
		if r.Type == domain.RiskInjury {
			return "Wait for injury confirmation before placing this bet"
		}
	}
	if metrics.EVPercent <= 0 {
		return "Avoid: negative expected value"
	}
	if assessment.Overall == domain.OverallHigh {
		return "Reduce stake: overall risk is high"
	}
	if stake.RecommendedFraction > 0 {
		return fmt.Sprintf("Bet %s%% of bankroll", trimFraction(stake.RecommendedFraction*100))
	}
	return "Minimum stake only, or pass"
}

func trimFraction(pct float64) string {
	s := fmt.Sprintf("%.2f", pct)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
