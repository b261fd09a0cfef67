// Package gridengine implements the per-symbol grid trading decision rule
package gridengine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"
	"trendgrid/pkg/telemetry"
)

// State is a point-in-time copy of a grid
type State struct {
	Buy              float64
	Sell             float64
	Quantity         float64
	ProfitRatio      float64
	DoubleThrowRatio float64
	// History holds entry fill prices, last entry at the end
	History []float64
}

// IsAir reports whether no leg is open
func (s State) IsAir() bool {
	return len(s.History) == 0
}

// Result describes the outcome of one Evaluate call
type Result struct {
	Action    core.Action
	Price     float64
	FillPrice float64
	Profit    float64
	Cooldown  bool
}

// GridEngine owns the grid state of one symbol.
// Evaluate must be called from a single goroutine; Snapshot is safe from any.
type GridEngine struct {
	cfg     Config
	market  core.MarketDataClient
	trade   core.TradeClient
	logger  core.ILogger
	metrics *telemetry.MetricsHolder

	mu    sync.RWMutex
	state State
}

// NewGridEngine validates cfg and seeds the grid from the configured thresholds
func NewGridEngine(cfg Config, market core.MarketDataClient, trade core.TradeClient, logger core.ILogger) (*GridEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &GridEngine{
		cfg:     cfg,
		market:  market,
		trade:   trade,
		logger:  logger.WithField("symbol", cfg.Symbol.Pair()),
		metrics: telemetry.GetGlobalMetrics(),
		state: State{
			Buy:              cfg.BuyPrice,
			Sell:             cfg.SellPrice,
			Quantity:         cfg.Quantity,
			ProfitRatio:      cfg.ProfitRatio,
			DoubleThrowRatio: cfg.DoubleThrowRatio,
			History:          []float64{},
		},
	}
	e.publish()
	return e, nil
}

// Symbol returns the traded symbol
func (e *GridEngine) Symbol() core.Symbol {
	return e.cfg.Symbol
}

// Snapshot returns a deep copy of the current state
func (e *GridEngine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// IsAir reports whether the engine holds no open leg
func (e *GridEngine) IsAir() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.state.History) == 0
}

func (e *GridEngine) snapshotLocked() State {
	s := e.state
	s.History = append(make([]float64, 0, len(e.state.History)), e.state.History...)
	return s
}

// Evaluate applies the decision rule to one observed price.
// Trade failures leave the state untouched and are returned for logging.
func (e *GridEngine) Evaluate(ctx context.Context, price float64) (Result, error) {
	res := Result{Action: core.ActionHeld, Price: price}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return res, apperrors.Decode("evaluate", fmt.Errorf("invalid price %v", price))
	}

	cur := e.Snapshot()

	switch {
	case price <= cur.Buy:
		return e.buy(ctx, price, cur)
	case price > cur.Sell:
		if cur.IsAir() {
			return e.drift(price, cur)
		}
		return e.sell(ctx, price, cur)
	default:
		return res, nil
	}
}

func (e *GridEngine) buy(ctx context.Context, price float64, cur State) (Result, error) {
	res := Result{Action: core.ActionHeld, Price: price}
	pair := e.cfg.Symbol.Pair()

	e.metrics.RecordOrder(ctx, pair, string(core.SideBuy))
	fill, err := e.trade.Buy(ctx, e.cfg.Symbol, cur.Quantity)
	if err != nil {
		return res, fmt.Errorf("buy %s: %w", pair, err)
	}
	if fill == nil {
		e.logger.Warn("Buy accepted without fill report, state unchanged", "price", price)
		return res, nil
	}

	e.mu.Lock()
	e.state.History = append(e.state.History, *fill)
	e.mu.Unlock()
	defer e.publish()

	e.metrics.RecordFill(ctx, pair, string(core.SideBuy), cur.Quantity)
	e.logger.Info("Bought", "price", price, "fill", *fill, "quantity", cur.Quantity)

	res.Action = core.ActionBought
	res.FillPrice = *fill
	res.Cooldown = true

	if err := e.refreshRatios(ctx); err != nil {
		return res, err
	}
	if err := e.reprice(price, price); err != nil {
		return res, err
	}
	return res, nil
}

func (e *GridEngine) sell(ctx context.Context, price float64, cur State) (Result, error) {
	res := Result{Action: core.ActionHeld, Price: price}
	pair := e.cfg.Symbol.Pair()
	entry := cur.History[len(cur.History)-1]

	e.metrics.RecordOrder(ctx, pair, string(core.SideSell))
	fill, err := e.trade.Sell(ctx, e.cfg.Symbol, cur.Quantity)
	if err != nil {
		return res, fmt.Errorf("sell %s: %w", pair, err)
	}
	if fill == nil {
		e.logger.Warn("Sell accepted without fill report, state unchanged", "price", price, "entry", entry)
		return res, nil
	}

	if _, err := e.popEntry(); err != nil {
		return res, err
	}
	defer e.publish()

	profit := (*fill - entry) * cur.Quantity
	e.metrics.RecordFill(ctx, pair, string(core.SideSell), cur.Quantity)
	e.metrics.RecordProfit(ctx, pair, profit)
	e.logger.Info("Sold", "price", price, "fill", *fill, "entry", entry, "quantity", cur.Quantity, "profit", profit)

	res.Action = core.ActionSold
	res.FillPrice = *fill
	res.Profit = profit
	res.Cooldown = true

	if err := e.refreshRatios(ctx); err != nil {
		return res, err
	}
	if err := e.reprice(entry, price); err != nil {
		return res, err
	}
	return res, nil
}

// drift moves a flat grid up behind a rising market without trading
func (e *GridEngine) drift(price float64, cur State) (Result, error) {
	res := Result{Action: core.ActionDrifted, Price: price}
	if err := e.reprice(cur.Sell, price); err != nil {
		res.Action = core.ActionHeld
		return res, err
	}
	next := e.Snapshot()
	e.logger.Debug("Grid drifted", "price", price, "buy", next.Buy, "sell", next.Sell)
	return res, nil
}

func (e *GridEngine) popEntry() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.state.History)
	if n == 0 {
		return 0, apperrors.Invariant("%s sell filled with empty history", e.cfg.Symbol.Pair())
	}
	entry := e.state.History[n-1]
	e.state.History = e.state.History[:n-1]
	return entry, nil
}

// refreshRatios sets both ratios to the volatility of recent candles
func (e *GridEngine) refreshRatios(ctx context.Context) error {
	candles, err := e.market.Klines(ctx, e.cfg.Symbol, e.cfg.KlineInterval, e.cfg.KlineLimit)
	if err != nil {
		return fmt.Errorf("fetch klines %s: %w", e.cfg.Symbol.Pair(), err)
	}
	vol, err := CalcVolatility(candles)
	if err != nil {
		return fmt.Errorf("volatility %s: %w", e.cfg.Symbol.Pair(), err)
	}

	e.mu.Lock()
	e.state.ProfitRatio = vol
	e.state.DoubleThrowRatio = vol
	e.mu.Unlock()

	e.logger.Debug("Ratios refreshed", "volatility", vol, "candles", len(candles))
	return nil
}

// reprice recomputes both thresholds from anchor and lets the market price
// widen them. The previous thresholds are kept when sell would not exceed buy.
func (e *GridEngine) reprice(anchor, market float64) error {
	e.mu.Lock()
	buy, sell := Thresholds(anchor, market, e.state.ProfitRatio, e.state.DoubleThrowRatio)
	if !(sell > buy) {
		prevBuy, prevSell := e.state.Buy, e.state.Sell
		e.mu.Unlock()
		return apperrors.Invariant("%s reprice produced buy=%v sell=%v (kept %v/%v)",
			e.cfg.Symbol.Pair(), buy, sell, prevBuy, prevSell)
	}
	e.state.Buy = buy
	e.state.Sell = sell
	e.mu.Unlock()

	e.publish()
	return nil
}

// Thresholds computes the buy and sell levels for an anchor and market price
func Thresholds(anchor, market, profitRatio, doubleThrowRatio float64) (buy, sell float64) {
	buy = anchor * (1 - doubleThrowRatio)
	sell = anchor * (1 + profitRatio)
	if market <= buy {
		buy = market * (1 - doubleThrowRatio)
	}
	if market > sell {
		sell = market * (1 + profitRatio)
	}
	return buy, sell
}

func (e *GridEngine) publish() {
	s := e.Snapshot()
	e.metrics.SetGridLevels(e.cfg.Symbol.Pair(), telemetry.GridLevels{
		Buy:      s.Buy,
		Sell:     s.Sell,
		OpenLegs: int64(len(s.History)),
	})
}
