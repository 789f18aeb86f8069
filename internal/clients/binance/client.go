// Package binance provides a minimal client for Binance spot ticker prices.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public spot API host.
const DefaultBaseURL = "https://api.binance.com"

// Client fetches last-trade prices from Binance.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Binance client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "binance").Logger(),
	}
}

// tickerResponse is the /api/v3/ticker/price payload. Binance quotes prices as strings.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type errorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// PairForTicker maps a Yahoo-style crypto ticker ("BTC-USD") to a Binance pair ("BTCUSDT").
// ok is false for tickers that are not USD crypto pairs.
func PairForTicker(ticker string) (pair string, ok bool) {
	base, found := strings.CutSuffix(strings.ToUpper(ticker), "-USD")
	if !found || base == "" {
		return "", false
	}
	return base + "USDT", true
}

// GetPrice returns the last price of a Binance pair such as "BTCUSDT".
func (c *Client) GetPrice(ctx context.Context, pair string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(pair))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("binance request for %s failed: %w", pair, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read binance response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return 0, fmt.Errorf("binance error for %s: %d %s", pair, apiErr.Code, apiErr.Msg)
		}
		return 0, fmt.Errorf("binance returned status %d for %s", resp.StatusCode, pair)
	}

	var ticker tickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("failed to parse binance response: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid binance price %q for %s: %w", ticker.Price, pair, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive binance price for %s", pair)
	}

	c.log.Debug().Str("pair", pair).Float64("price", price).Msg("Fetched ticker price")
	return price, nil
}
