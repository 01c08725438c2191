package domain

import (
	"encoding/json"
	"fmt"
)

// Asset represents one investable unit supplied by the caller.
// Immutable for the duration of an evaluation call.
type Asset struct {
	ID             string             `json:"id"`
	ExpectedReturn float64            `json:"expected_return"` // fractional, e.g. 0.08
	Volatility     float64            `json:"volatility"`      // stddev of returns, >= 0
	Correlations   map[string]float64 `json:"correlations,omitempty"`
	History        []float64          `json:"history,omitempty"` // historical returns, oldest first
}

// RiskType classifies an independent risk dimension.
type RiskType string

const (
	RiskInjury       RiskType = "INJURY"
	RiskCorrelation  RiskType = "CORRELATION"
	RiskMarketSignal RiskType = "MARKET_SIGNAL"
	RiskValue        RiskType = "VALUE"
	RiskDataStale    RiskType = "DATA_STALE"
	RiskInput        RiskType = "INPUT"
)

// Severity ranks risks. Ordering: LOW < MEDIUM < HIGH < CRITICAL.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the wire representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MarshalJSON renders severities as their string names.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the string names back into the enum.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "CRITICAL":
		*s = SeverityCritical
	case "HIGH":
		*s = SeverityHigh
	case "MEDIUM":
		*s = SeverityMedium
	case "LOW":
		*s = SeverityLow
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Risk is one identified concern about a parlay or portfolio.
type Risk struct {
	Type     RiskType `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Impact   string   `json:"impact,omitempty"`
}

// OverallRisk is the single verdict derived from a set of risks.
type OverallRisk string

const (
	OverallLow      OverallRisk = "LOW"
	OverallMedium   OverallRisk = "MEDIUM"
	OverallHigh     OverallRisk = "HIGH"
	OverallRejected OverallRisk = "REJECTED"
)

// RiskAssessment collects all identified risks and the overall verdict.
type RiskAssessment struct {
	Risks   []Risk      `json:"risks"`
	Overall OverallRisk `json:"overall_risk"`
}

// Recommendation is one prioritized, human-actionable suggestion.
type Recommendation struct {
	Priority Severity `json:"priority"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Action   string   `json:"action,omitempty"`
}

// RecommendationSet is the ordered output of the recommendation engine.
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
	PrimaryAction   string           `json:"primary_action"`
}

// KellyStake describes the suggested stake sizing for a wager.
type KellyStake struct {
	RawFraction         float64 `json:"raw_fraction"`
	RecommendedFraction float64 `json:"recommended_fraction"`
	CapApplied          bool    `json:"cap_applied"`
}
