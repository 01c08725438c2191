package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/domain"
	"github.com/oddsforge/parlay-engine/internal/history"
	"github.com/oddsforge/parlay-engine/internal/modules/evaluation"
	"github.com/oddsforge/parlay-engine/internal/modules/optimization"
	"github.com/oddsforge/parlay-engine/internal/modules/parlay"
)

// historyLookbackDays is the calendar window pulled from the price
// store when a portfolio asset arrives without its own return series.
const historyLookbackDays = 365

// Handlers adapts the evaluation pipeline to JSON requests.
type Handlers struct {
	pipeline *evaluation.Pipeline
	history  *history.Repository
	log      zerolog.Logger
}

func NewHandlers(pipeline *evaluation.Pipeline, historyRepo *history.Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		history:  historyRepo,
		log:      log.With().Str("component", "handlers").Logger(),
	}
}

// ParlayRequest is the body of POST /api/evaluate/parlay.
type ParlayRequest struct {
	Legs []parlay.Leg `json:"legs"`
}

// PortfolioRequest is the body of POST /api/evaluate/portfolio.
type PortfolioRequest struct {
	Assets      []domain.Asset            `json:"assets"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
	Limits      optimization.Limits       `json:"limits"`
	Objective   optimization.Objective    `json:"objective"`
}

// HandleEvaluateParlay evaluates a multi-leg ticket.
// POST /api/evaluate/parlay
func (h *Handlers) HandleEvaluateParlay(w http.ResponseWriter, r *http.Request) {
	var req ParlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result := h.pipeline.EvaluateParlay(req.Legs)

	status := http.StatusOK
	if result.Summary.Verdict == evaluation.VerdictError {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, result)
}

// HandleEvaluatePortfolio optimizes a portfolio for an objective.
// POST /api/evaluate/portfolio
func (h *Handlers) HandleEvaluatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.hydrateHistory(req.Assets)

	constraints := optimization.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	objective := req.Objective
	if objective == "" {
		objective = optimization.ObjectiveMaxSharpe
	}

	result := h.pipeline.EvaluatePortfolio(req.Assets, constraints, req.Limits, objective)

	status := http.StatusOK
	if result.Summary.Verdict == evaluation.VerdictError {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, result)
}

// hydrateHistory fills missing return series from the price history
// store for assets whose ID matches a stored symbol. Series the store
// has no prices for stay empty.
func (h *Handlers) hydrateHistory(assets []domain.Asset) {
	if h.history == nil {
		return
	}

	var missing []string
	for _, a := range assets {
		if len(a.History) == 0 {
			missing = append(missing, a.ID)
		}
	}
	if len(missing) == 0 {
		return
	}

	returns, err := h.history.ReturnsFor(missing, historyLookbackDays)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load return history")
		return
	}

	for i := range assets {
		if len(assets[i].History) > 0 {
			continue
		}
		series := returns[assets[i].ID]
		if hasSignal(series) {
			assets[i].History = series
			h.log.Debug().Str("symbol", assets[i].ID).Int("observations", len(series)).Msg("Hydrated return history")
		}
	}
}

// hasSignal reports whether a return series carries any information.
// Symbols absent from the store come back as all-zero placeholders.
func hasSignal(series []float64) bool {
	for _, v := range series {
		if v != 0 {
			return true
		}
	}
	return false
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
