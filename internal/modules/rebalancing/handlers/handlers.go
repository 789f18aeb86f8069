// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qdr/internal/modules/marketdata"
	opthandlers "github.com/aristath/qdr/internal/modules/optimization/handlers"
	"github.com/aristath/qdr/internal/modules/rebalancing"
)

// Planner computes rebalance plans. *rebalancing.Service satisfies it.
type Planner interface {
	Plan(ctx context.Context, req rebalancing.Request) (*rebalancing.Plan, error)
}

// Handler handles rebalancing HTTP requests
type Handler struct {
	planner Planner
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(planner Planner, log zerolog.Logger) *Handler {
	return &Handler{
		planner: planner,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// RebalanceRequest is the body of POST /api/rebalance
type RebalanceRequest struct {
	Tickers        []string           `json:"tickers"`
	Period         string             `json:"period"`
	RiskAversion   *float64           `json:"risk_aversion,omitempty"`
	RiskProfile    string             `json:"risk_profile,omitempty"`
	NumSlices      int                `json:"num_slices"`
	NumReads       int                `json:"num_reads"`
	NumSweeps      int                `json:"num_sweeps"`
	Seed           *uint64            `json:"seed,omitempty"`
	CurrentWeights map[string]float64 `json:"current_weights,omitempty"`
	Threshold      *float64           `json:"threshold,omitempty"`
}

// HandleRebalance handles POST /api/rebalance
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(marketdata.NormalizeSymbols(req.Tickers)) == 0 {
		http.Error(w, "No tickers provided", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()

	var current map[string]float64
	if len(req.CurrentWeights) > 0 {
		current = make(map[string]float64, len(req.CurrentWeights))
		for asset, v := range req.CurrentWeights {
			if sym := marketdata.NormalizeSymbols([]string{asset}); len(sym) == 1 {
				current[sym[0]] += v
			}
		}
	}

	plan, err := h.planner.Plan(r.Context(), rebalancing.Request{
		Tickers:        req.Tickers,
		Period:         req.Period,
		RiskAversion:   req.RiskAversion,
		RiskProfile:    rebalancing.RiskProfile(req.RiskProfile),
		NumSlices:      req.NumSlices,
		NumReads:       req.NumReads,
		NumSweeps:      req.NumSweeps,
		Seed:           req.Seed,
		CurrentWeights: current,
		Threshold:      req.Threshold,
	})
	if err != nil {
		status := opthandlers.StatusForError(err)
		h.log.Warn().Err(err).Str("run_id", runID).Int("status", status).Msg("Rebalance failed")
		http.Error(w, err.Error(), status)
		return
	}

	missing := plan.Missing
	if missing == nil {
		missing = []string{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"current_weights": plan.CurrentWeights,
			"target_weights":  plan.Result.Weights,
			"comparison":      plan.Comparison,
			"trades":          plan.Trades,
		},
		"metadata": map[string]interface{}{
			"timestamp":       time.Now().Format(time.RFC3339),
			"run_id":          runID,
			"status":          plan.Result.Status,
			"algorithm":       opthandlers.Algorithm,
			"risk_aversion":   plan.RiskAversion,
			"threshold":       plan.Threshold,
			"period":          plan.Period,
			"missing_tickers": missing,
			"seed":            plan.Result.Seed,
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
