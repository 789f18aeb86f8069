package testing

import (
	"context"
	"sync"

	"github.com/aristath/qdr/internal/modules/marketdata"
)

// MockHistoryProvider is a mock implementation of marketdata.HistoryProvider
// Serves fixed histories and counts calls
type MockHistoryProvider struct {
	mu        sync.Mutex
	histories map[string][]marketdata.PricePoint
	err       error
	calls     int
}

// NewMockHistoryProvider creates a new mock history provider
func NewMockHistoryProvider(histories map[string][]marketdata.PricePoint) *MockHistoryProvider {
	return &MockHistoryProvider{histories: histories}
}

// SetError sets an error to return on the next calls
func (m *MockHistoryProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetHistory was invoked
func (m *MockHistoryProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GetHistory returns the configured histories for the requested symbols
func (m *MockHistoryProvider) GetHistory(ctx context.Context, symbols []string, period string) (map[string][]marketdata.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	out := make(map[string][]marketdata.PricePoint, len(symbols))
	for _, s := range symbols {
		if h, ok := m.histories[s]; ok {
			out[s] = append([]marketdata.PricePoint(nil), h...)
		}
	}
	return out, nil
}

// MockQuoteProvider is a mock implementation of marketdata.QuoteProvider
type MockQuoteProvider struct {
	mu     sync.Mutex
	prices map[string]float64
}

// NewMockQuoteProvider creates a new mock quote provider
func NewMockQuoteProvider(prices map[string]float64) *MockQuoteProvider {
	return &MockQuoteProvider{prices: prices}
}

// GetPrice returns the configured price or marketdata.ErrNoData
func (m *MockQuoteProvider) GetPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.prices[symbol]; ok {
		return p, nil
	}
	return 0, marketdata.ErrNoData
}
