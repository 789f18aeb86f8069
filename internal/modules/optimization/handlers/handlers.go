// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

// Algorithm is reported in response metadata.
const Algorithm = "Simulated Annealing (QUBO)"

// MarketData is what the handlers need from the market-data service.
type MarketData interface {
	LoadSeries(ctx context.Context, symbols []string, period string) (*marketdata.Dataset, error)
	Quotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Handler handles optimization HTTP requests
type Handler struct {
	optimizer *optimization.Optimizer
	market    MarketData
	log       zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(optimizer *optimization.Optimizer, market MarketData, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: optimizer,
		market:    market,
		log:       log.With().Str("handler", "optimization").Logger(),
	}
}

// OptimizeRequest is the body of POST /api/optimize
type OptimizeRequest struct {
	Tickers      []string `json:"tickers"`
	RiskAversion *float64 `json:"risk_aversion,omitempty"`
	Period       string   `json:"period"`
	NumSlices    int      `json:"num_slices"`
	NumReads     int      `json:"num_reads"`
	NumSweeps    int      `json:"num_sweeps"`
	Seed         *uint64  `json:"seed,omitempty"`
	Weighting    string   `json:"weighting,omitempty"`
}

// ScoreRequest is the body of POST /api/portfolio/score
type ScoreRequest struct {
	Tickers             []string           `json:"tickers"`
	Period              string             `json:"period"`
	Weights             map[string]float64 `json:"weights"`
	AnnualizationFactor float64            `json:"annualization_factor"`
}

// FrontierRequest is the body of POST /api/portfolio/frontier
type FrontierRequest struct {
	Tickers []string `json:"tickers"`
	Period  string   `json:"period"`
	Samples int      `json:"samples"`
	Seed    *uint64  `json:"seed,omitempty"`
}

// defaultRiskAversion applies when an optimize request leaves risk_aversion out.
const defaultRiskAversion = 1.0

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
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
	log := h.log.With().Str("run_id", runID).Logger()

	dataset, err := h.market.LoadSeries(r.Context(), req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, log, err, "Failed to load price history")
		return
	}

	lambda := defaultRiskAversion
	if req.RiskAversion != nil {
		lambda = *req.RiskAversion
	}

	result, err := h.optimizer.OptimizePortfolio(r.Context(), dataset.Series, optimization.Request{
		RiskAversion: lambda,
		NumSlices:    req.NumSlices,
		NumReads:     req.NumReads,
		NumSweeps:    req.NumSweeps,
		Seed:         req.Seed,
		Weighting:    optimization.Weighting(req.Weighting),
	})
	if err != nil {
		h.writeError(w, log, err, "Optimization failed")
		return
	}

	prices, err := h.market.Quotes(r.Context(), result.Assets)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch current prices")
		prices = map[string]float64{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"allocation":     result.Weights,
			"metrics":        result.Metrics,
			"slice_counts":   result.SliceCounts,
			"current_prices": prices,
		},
		"metadata": map[string]interface{}{
			"timestamp":         time.Now().Format(time.RFC3339),
			"run_id":            runID,
			"status":            result.Status,
			"algorithm":         Algorithm,
			"tickers_processed": result.Assets,
			"missing_tickers":   nonNil(dataset.Missing),
			"zero_variance":     nonNil(result.ZeroVariance),
			"period":            dataset.Period,
			"risk_aversion":     lambda,
			"num_slices":        result.NumSlices,
			"seed":              result.Seed,
			"energy":            result.Energy,
			"objective":         result.Objective,
			"penalty":           result.Penalty,
			"reads":             result.Reads,
			"sweeps":            result.Sweeps,
			"feasible_reads":    result.FeasibleReads,
			"truncated":         result.Truncated,
			"duration_ms":       result.Duration.Milliseconds(),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleScore handles POST /api/portfolio/score
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Weights) == 0 {
		http.Error(w, "No weights provided", http.StatusBadRequest)
		return
	}

	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = optimization.PortfolioWeights(req.Weights).Assets()
	}

	dataset, err := h.market.LoadSeries(r.Context(), tickers, req.Period)
	if err != nil {
		h.writeError(w, h.log, err, "Failed to load price history")
		return
	}

	weights := make(optimization.PortfolioWeights, len(req.Weights))
	for asset, v := range req.Weights {
		weights[strings.ToUpper(strings.TrimSpace(asset))] = v
	}

	metrics, err := h.optimizer.Score(dataset.Series, weights, req.AnnualizationFactor)
	if err != nil {
		h.writeError(w, h.log, err, "Scoring failed")
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"weights": weights,
			"metrics": metrics,
		},
		"metadata": map[string]interface{}{
			"timestamp":       time.Now().Format(time.RFC3339),
			"period":          dataset.Period,
			"missing_tickers": nonNil(dataset.Missing),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleFrontier handles POST /api/portfolio/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var req FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(marketdata.NormalizeSymbols(req.Tickers)) == 0 {
		http.Error(w, "No tickers provided", http.StatusBadRequest)
		return
	}

	dataset, err := h.market.LoadSeries(r.Context(), req.Tickers, req.Period)
	if err != nil {
		h.writeError(w, h.log, err, "Failed to load price history")
		return
	}

	stats, err := h.optimizer.Statistics(dataset.Series)
	if err != nil {
		h.writeError(w, h.log, err, "Failed to compute statistics")
		return
	}

	frontier, err := optimization.RandomFrontier(stats, req.Samples, req.Seed, h.optimizer.Settings().AnnualizationFactor)
	if err != nil {
		h.writeError(w, h.log, err, "Failed to sample frontier")
		return
	}

	response := map[string]interface{}{
		"data": frontier,
		"metadata": map[string]interface{}{
			"timestamp":       time.Now().Format(time.RFC3339),
			"period":          dataset.Period,
			"assets":          stats.Assets,
			"missing_tickers": nonNil(dataset.Missing),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleQuotes handles GET /api/quotes?symbols=A,B
func (h *Handler) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := marketdata.NormalizeSymbols(strings.Split(r.URL.Query().Get("symbols"), ","))
	if len(symbols) == 0 {
		http.Error(w, "symbols parameter is required", http.StatusBadRequest)
		return
	}

	quotes, err := h.market.Quotes(r.Context(), symbols)
	if err != nil {
		h.writeError(w, h.log, err, "Failed to fetch quotes")
		return
	}

	missing := []string{}
	for _, s := range symbols {
		if _, ok := quotes[s]; !ok {
			missing = append(missing, s)
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"quotes":  quotes,
			"missing": missing,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(msg)
	}
	http.Error(w, err.Error(), status)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
