package mock

import (
	"context"
	"fmt"
	"sync"

	"trendgrid/internal/core"
)

// Order records one trade call made against MockExchange
type Order struct {
	Symbol   core.Symbol
	Side     core.Side
	Quantity float64
	Price    float64
}

type symbolScript struct {
	prices     []float64
	lastPrice  float64
	tickerErrs []error
	tickerHits int
	klines     []core.Candle
	klineErr   error
	tradeErr   error
	noFill     bool
	fillPrice  *float64
}

// MockExchange implements core.Exchange with scripted per-symbol responses.
// Prices are consumed in order; once exhausted the last price repeats.
type MockExchange struct {
	name    string
	pingErr error
	scripts map[core.Symbol]*symbolScript
	orders  []Order
	mu      sync.RWMutex
}

func NewMockExchange(name string) *MockExchange {
	return &MockExchange{
		name:    name,
		scripts: make(map[core.Symbol]*symbolScript),
	}
}

func (m *MockExchange) script(symbol core.Symbol) *symbolScript {
	s, ok := m.scripts[symbol]
	if !ok {
		s = &symbolScript{}
		m.scripts[symbol] = s
	}
	return s
}

func (m *MockExchange) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// SetPrices queues ticker prices for a symbol
func (m *MockExchange) SetPrices(symbol core.Symbol, prices ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).prices = append(m.script(symbol).prices, prices...)
}

// PushTickerError makes the next ticker call for symbol fail; errors are served before prices
func (m *MockExchange) PushTickerError(symbol core.Symbol, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).tickerErrs = append(m.script(symbol).tickerErrs, errs...)
}

func (m *MockExchange) SetKlines(symbol core.Symbol, candles []core.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).klines = candles
}

func (m *MockExchange) SetKlinesError(symbol core.Symbol, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).klineErr = err
}

// SetTradeError makes every buy and sell for symbol fail with err; nil restores fills
func (m *MockExchange) SetTradeError(symbol core.Symbol, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).tradeErr = err
}

// SetNoFill makes orders succeed without fill information
func (m *MockExchange) SetNoFill(symbol core.Symbol, noFill bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).noFill = noFill
}

// SetFillPrice overrides the fill price; by default orders fill at the last ticker price
func (m *MockExchange) SetFillPrice(symbol core.Symbol, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script(symbol).fillPrice = &price
}

// Orders returns the trade calls made so far
func (m *MockExchange) Orders() []Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, len(m.orders))
	copy(out, m.orders)
	return out
}

// TickerCalls returns how many ticker requests were served for symbol
func (m *MockExchange) TickerCalls(symbol core.Symbol) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.scripts[symbol]; ok {
		return s.tickerHits
	}
	return 0
}

func (m *MockExchange) GetName() string {
	return m.name
}

func (m *MockExchange) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingErr
}

func (m *MockExchange) TickerPrice(ctx context.Context, symbol core.Symbol) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.script(symbol)
	s.tickerHits++
	if len(s.tickerErrs) > 0 {
		err := s.tickerErrs[0]
		s.tickerErrs = s.tickerErrs[1:]
		return 0, err
	}
	if len(s.prices) > 0 {
		s.lastPrice = s.prices[0]
		s.prices = s.prices[1:]
	}
	if s.lastPrice == 0 {
		return 0, fmt.Errorf("no price scripted for %s", symbol)
	}
	return s.lastPrice, nil
}

func (m *MockExchange) Klines(ctx context.Context, symbol core.Symbol, interval core.Interval, limit int) ([]core.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scripts[symbol]
	if !ok {
		return nil, nil
	}
	if s.klineErr != nil {
		return nil, s.klineErr
	}
	candles := s.klines
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	out := make([]core.Candle, len(candles))
	copy(out, candles)
	return out, nil
}

func (m *MockExchange) Ticker24h(ctx context.Context, symbol core.Symbol) (*core.Ticker24h, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last float64
	if s, ok := m.scripts[symbol]; ok {
		last = s.lastPrice
	}
	return &core.Ticker24h{Symbol: symbol.Pair(), LastPrice: last}, nil
}

func (m *MockExchange) Buy(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return m.trade(symbol, core.SideBuy, quantity)
}

func (m *MockExchange) Sell(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return m.trade(symbol, core.SideSell, quantity)
}

func (m *MockExchange) trade(symbol core.Symbol, side core.Side, quantity float64) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.script(symbol)
	if s.tradeErr != nil {
		return nil, s.tradeErr
	}
	if s.noFill {
		m.orders = append(m.orders, Order{Symbol: symbol, Side: side, Quantity: quantity})
		return nil, nil
	}
	price := s.lastPrice
	if s.fillPrice != nil {
		price = *s.fillPrice
	}
	m.orders = append(m.orders, Order{Symbol: symbol, Side: side, Quantity: quantity, Price: price})
	return &price, nil
}
