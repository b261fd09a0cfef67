// Package paper provides a TradeClient that fills at the live ticker price without sending orders
package paper

import (
	"context"
	"fmt"
	"sync"

	"trendgrid/internal/core"

	"github.com/shopspring/decimal"
)

// Trader simulates market orders against a MarketDataClient
type Trader struct {
	market core.MarketDataClient
	logger core.ILogger

	mu       sync.Mutex
	position map[core.Symbol]decimal.Decimal
}

// NewTrader creates a paper trader reading prices from market
func NewTrader(market core.MarketDataClient, logger core.ILogger) *Trader {
	return &Trader{
		market:   market,
		logger:   logger.WithField("component", "paper_trader"),
		position: make(map[core.Symbol]decimal.Decimal),
	}
}

func (t *Trader) Buy(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return t.fill(ctx, symbol, core.SideBuy, quantity)
}

// Sell fails when the simulated position is smaller than quantity
func (t *Trader) Sell(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return t.fill(ctx, symbol, core.SideSell, quantity)
}

// Position returns the simulated base asset held for symbol
func (t *Trader) Position(symbol core.Symbol) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position[symbol].InexactFloat64()
}

func (t *Trader) fill(ctx context.Context, symbol core.Symbol, side core.Side, quantity float64) (*float64, error) {
	price, err := t.market.TickerPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper %s: %w", side, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	qty := decimal.NewFromFloat(quantity)
	held := t.position[symbol]
	if side == core.SideSell {
		if held.LessThan(qty) {
			return nil, fmt.Errorf("paper sell %s: position %s below quantity %s", symbol, held, qty)
		}
		t.position[symbol] = held.Sub(qty)
	} else {
		t.position[symbol] = held.Add(qty)
	}

	t.logger.Info("Paper order filled", "symbol", symbol.Pair(), "side", side, "quantity", quantity, "price", price)
	return &price, nil
}
