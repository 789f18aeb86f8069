// Package yahoo provides a client for the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public chart API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when Yahoo answers but has no usable bars or price.
var ErrNoData = errors.New("yahoo: no data")

// Bar is one daily observation.
type Bar struct {
	Time     time.Time
	Close    float64
	AdjClose float64 // 0 when Yahoo did not report an adjusted close
}

// Price returns the adjusted close when present, else the close.
func (b Bar) Price() float64 {
	if b.AdjClose > 0 {
		return b.AdjClose
	}
	return b.Close
}

// Client fetches daily history and last prices from Yahoo Finance.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Config holds client settings.
type Config struct {
	BaseURL string
	// RequestsPerSecond caps outgoing calls; <= 0 disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NewClient creates a new Yahoo Finance client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse mirrors the parts of /v8/finance/chart we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistory returns daily bars for symbol over period (e.g. "1y").
// Bars without a close are skipped.
func (c *Client) GetHistory(ctx context.Context, symbol, period string) ([]Bar, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")
	params.Set("includeAdjustedClose", "true")

	resp, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	var closes, adj []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := Bar{Time: time.Unix(ts, 0).UTC()}
		if i < len(closes) && closes[i] != nil {
			bar.Close = *closes[i]
		}
		if i < len(adj) && adj[i] != nil {
			bar.AdjClose = *adj[i]
		}
		if bar.Price() <= 0 {
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("bars", len(bars)).
		Msg("Fetched price history")

	return bars, nil
}

// GetQuote returns the last regular market price for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	resp, err := c.chart(ctx, symbol, params)
	if err != nil {
		return 0, err
	}

	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("%w: no market price for %s", ErrNoData, symbol)
	}
	return price, nil
}

func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResponse, error) {
	if symbol == "" {
		return nil, fmt.Errorf("yahoo: empty symbol")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("yahoo: rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; qdr/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, symbol)
		}
		return nil, fmt.Errorf("failed to parse yahoo response: %w", err)
	}

	if e := parsed.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s: %s", ErrNoData, symbol, e.Description)
		}
		return nil, fmt.Errorf("yahoo error for %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, symbol)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	return &parsed, nil
}
