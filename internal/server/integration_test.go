package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qdr/internal/clientdata"
	"github.com/aristath/qdr/internal/di"
	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
	"github.com/aristath/qdr/internal/modules/rebalancing"
	"github.com/aristath/qdr/internal/scheduler"
	testingpkg "github.com/aristath/qdr/internal/testing"
)

var fixtureAssets = []string{"AAPL", "BTC-USD", "MSFT"}

// newFixtureServer serves fixture market data through the real cache,
// market data service, optimizer and handlers.
func newFixtureServer(t *testing.T) (*Server, *testingpkg.MockHistoryProvider) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	history := testingpkg.NewMockHistoryProvider(testingpkg.NewPriceHistoryFixtures(fixtureAssets, 60))
	quotes := testingpkg.NewMockQuoteProvider(testingpkg.NewQuoteFixtures(fixtureAssets))

	repo := clientdata.NewRepository(db.Conn())
	market := marketdata.NewService(history, []marketdata.QuoteProvider{quotes}, repo, log)

	settings := optimization.DefaultSettings()
	settings.Workers = 2
	optimizer := optimization.NewOptimizer(settings, log)

	container := &di.Container{
		CacheDB:            db,
		ClientDataRepo:     repo,
		MarketDataService:  market,
		Optimizer:          optimizer,
		RebalancingService: rebalancing.NewService(market, optimizer, log),
		Scheduler:          scheduler.New(log),
	}

	return New(Config{Log: log, DevMode: true, Container: container}), history
}

type envelope struct {
	Data     map[string]json.RawMessage `json:"data"`
	Metadata map[string]json.RawMessage `json:"metadata"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	require.NotNil(t, env.Data)
	require.NotNil(t, env.Metadata)
	return env
}

func TestIntegration_OptimizeIsReproducibleAndCached(t *testing.T) {
	s, history := newFixtureServer(t)

	body := `{"tickers":["aapl","msft","BTC-USD","NOPE"],"period":"6mo","risk_aversion":0.5,"num_slices":20,"num_reads":8,"num_sweeps":200,"seed":42}`

	first := serve(t, s, http.MethodPost, "/api/optimize", body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := serve(t, s, http.MethodPost, "/api/optimize", body)
	require.Equal(t, http.StatusOK, second.Code)

	a := decodeEnvelope(t, first.Body.Bytes())
	b := decodeEnvelope(t, second.Body.Bytes())

	var allocation map[string]float64
	require.NoError(t, json.Unmarshal(a.Data["allocation"], &allocation))
	assert.Len(t, allocation, 3)
	var total float64
	for _, w := range allocation {
		assert.GreaterOrEqual(t, w, 0.0)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	// Same seed, same answer
	assert.JSONEq(t, string(a.Data["allocation"]), string(b.Data["allocation"]))
	assert.JSONEq(t, string(a.Metadata["energy"]), string(b.Metadata["energy"]))

	var missing []string
	require.NoError(t, json.Unmarshal(a.Metadata["missing_tickers"], &missing))
	assert.Equal(t, []string{"NOPE"}, missing)

	var prices map[string]float64
	require.NoError(t, json.Unmarshal(a.Data["current_prices"], &prices))
	assert.Len(t, prices, 3)

	// The second request is served from the cache for the loaded symbols
	assert.LessOrEqual(t, history.Calls(), 2)
}

func TestIntegration_Rebalance(t *testing.T) {
	s, _ := newFixtureServer(t)

	body := `{"tickers":["AAPL","MSFT","BTC-USD"],"risk_profile":"conservative","num_slices":10,"num_reads":4,"num_sweeps":100,"seed":7,"current_weights":{"aapl":1}}`

	w := serve(t, s, http.MethodPost, "/api/rebalance", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w.Body.Bytes())

	var trades []rebalancing.Trade
	require.NoError(t, json.Unmarshal(env.Data["trades"], &trades))
	require.Len(t, trades, 3)
	for _, trade := range trades {
		assert.Contains(t, fixtureAssets, trade.Asset)
		assert.InDelta(t, trade.TargetWeight-trade.CurrentWeight, trade.Diff, 1e-12)
	}
	assert.Equal(t, "AAPL", trades[0].Asset)
	assert.Equal(t, 1.0, trades[0].CurrentWeight)
}

func TestIntegration_QuotesAndFrontier(t *testing.T) {
	s, _ := newFixtureServer(t)

	w := serve(t, s, http.MethodGet, "/api/quotes?symbols=aapl,NOPE", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())

	var quotes map[string]float64
	require.NoError(t, json.Unmarshal(env.Data["quotes"], &quotes))
	assert.Equal(t, map[string]float64{"AAPL": 100}, quotes)

	w = serve(t, s, http.MethodPost, "/api/portfolio/frontier", `{"tickers":["AAPL","MSFT"],"samples":25,"seed":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
