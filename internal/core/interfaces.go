// Package core defines the core interfaces for the grid trading agent
package core

import (
	"context"
)

// ILogger defines the logging interface
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// MarketDataClient provides read-only market access.
// Implementations must be safe for concurrent use by all symbol runners.
type MarketDataClient interface {
	// Ping checks connectivity with the exchange
	Ping(ctx context.Context) error
	// TickerPrice returns the latest trade price for the symbol
	TickerPrice(ctx context.Context, symbol Symbol) (float64, error)
	// Klines returns the most recent candles, oldest first
	Klines(ctx context.Context, symbol Symbol, interval Interval, limit int) ([]Candle, error)
	// Ticker24h returns rolling 24 hour statistics
	Ticker24h(ctx context.Context, symbol Symbol) (*Ticker24h, error)
}

// TradeClient places market orders.
// A nil fill with a nil error means the order was accepted but no fill was reported.
type TradeClient interface {
	Buy(ctx context.Context, symbol Symbol, quantity float64) (*float64, error)
	Sell(ctx context.Context, symbol Symbol, quantity float64) (*float64, error)
}

// Exchange bundles both client roles behind one handle
type Exchange interface {
	MarketDataClient
	TradeClient
	GetName() string
}

// IHealthMonitor tracks component health
type IHealthMonitor interface {
	Register(component string, check func() error)
	IsHealthy() bool
	GetStatus() map[string]string
}
