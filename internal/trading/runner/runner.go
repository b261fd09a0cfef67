// Package runner drives one GridEngine from a ticker polling loop
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	"trendgrid/internal/engine/gridengine"
	apperrors "trendgrid/pkg/errors"
	"trendgrid/pkg/telemetry"
)

// State is the lifecycle state of a SymbolRunner
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Engine is the decision engine a runner drives
type Engine interface {
	Symbol() core.Symbol
	Evaluate(ctx context.Context, price float64) (gridengine.Result, error)
	Snapshot() gridengine.State
}

// SymbolRunner is an isolated polling loop for one symbol.
// It shares only the market client with other runners.
type SymbolRunner struct {
	engine  Engine
	market  core.MarketDataClient
	cfg     config.RunnerConfig
	logger  core.ILogger
	metrics *telemetry.MetricsHolder

	state    atomic.Int32
	ticks    atomic.Int64
	lastTick atomic.Int64
	lastErr  atomic.Pointer[error]
}

// NewSymbolRunner creates a runner for eng
func NewSymbolRunner(eng Engine, market core.MarketDataClient, cfg config.RunnerConfig, logger core.ILogger) *SymbolRunner {
	return &SymbolRunner{
		engine:  eng,
		market:  market,
		cfg:     cfg,
		logger:  logger.WithField("component", "symbol_runner").WithField("symbol", eng.Symbol().Pair()),
		metrics: telemetry.GetGlobalMetrics(),
	}
}

// Symbol returns the symbol this runner trades
func (r *SymbolRunner) Symbol() core.Symbol {
	return r.engine.Symbol()
}

// State returns the current lifecycle state
func (r *SymbolRunner) State() State {
	return State(r.state.Load())
}

// Ticks returns the number of ticks processed
func (r *SymbolRunner) Ticks() int64 {
	return r.ticks.Load()
}

// LastTick returns when the last price was observed
func (r *SymbolRunner) LastTick() time.Time {
	ns := r.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// HealthCheck fails once the loop has stopped
func (r *SymbolRunner) HealthCheck() error {
	if r.State() != StateRunning {
		if last := r.lastErr.Load(); last != nil {
			return fmt.Errorf("%s runner stopped: %w", r.Symbol().Pair(), *last)
		}
		return fmt.Errorf("%s runner stopped", r.Symbol().Pair())
	}
	return nil
}

// Run loops until ctx is cancelled or an invariant violation occurs
func (r *SymbolRunner) Run(ctx context.Context) (err error) {
	r.state.Store(int32(StateRunning))
	defer func() {
		r.state.Store(int32(StateStopped))
		if err != nil {
			last := err
			r.lastErr.Store(&last)
		}
	}()

	r.logMarketContext(ctx)
	snap := r.engine.Snapshot()
	r.logger.Info("Symbol runner started", "buy", snap.Buy, "sell", snap.Sell, "quantity", snap.Quantity)

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("Symbol runner stopped", "ticks", r.Ticks())
			return err
		}

		delay, err := r.step(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.logger.Info("Symbol runner stopped", "ticks", r.Ticks())
				return ctxErr
			}
			r.logger.Error("Symbol runner halted", "error", err, "kind", apperrors.Kind(err))
			return err
		}

		if err := sleep(ctx, delay); err != nil {
			r.logger.Info("Symbol runner stopped", "ticks", r.Ticks())
			return err
		}
	}
}

// step runs one tick and returns how long to wait before the next.
// Only fatal errors are returned.
func (r *SymbolRunner) step(ctx context.Context) (delay time.Duration, err error) {
	pair := r.Symbol().Pair()
	defer func() {
		if p := recover(); p != nil {
			err = apperrors.Invariant("panic during %s tick: %v", pair, p)
		}
	}()

	price, err := r.market.TickerPrice(ctx, r.Symbol())
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		r.recordError(ctx, "Ticker price failed", err)
		return r.cfg.ErrorBackoff, nil
	}

	r.ticks.Add(1)
	r.lastTick.Store(time.Now().UnixNano())

	res, err := r.engine.Evaluate(ctx, price)
	if err != nil {
		if apperrors.IsFatal(err) {
			r.metrics.RecordTickError(ctx, pair, apperrors.Kind(err))
			return 0, err
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return 0, ctx.Err()
		}
		r.recordError(ctx, "Tick failed", err)
	}

	r.logTick(res)

	if res.Cooldown {
		delay += r.cfg.Cooldown
	}
	return delay + r.cfg.PollInterval, nil
}

func (r *SymbolRunner) recordError(ctx context.Context, msg string, err error) {
	kind := apperrors.Kind(err)
	r.metrics.RecordTickError(ctx, r.Symbol().Pair(), kind)
	r.logger.Warn(msg, "error", err, "kind", kind)
}

func (r *SymbolRunner) logTick(res gridengine.Result) {
	snap := r.engine.Snapshot()
	fields := []interface{}{
		"action", res.Action.String(),
		"price", res.Price,
		"buy", snap.Buy,
		"sell", snap.Sell,
		"open_legs", len(snap.History),
	}

	switch res.Action {
	case core.ActionBought, core.ActionSold:
		fields = append(fields, "fill", res.FillPrice, "profit", res.Profit, "cooldown", r.cfg.Cooldown)
		r.logger.Info("Tick", fields...)
	default:
		r.logger.Debug("Tick", fields...)
	}
}

// logMarketContext logs 24h statistics once; failures are not fatal
func (r *SymbolRunner) logMarketContext(ctx context.Context) {
	stats, err := r.market.Ticker24h(ctx, r.Symbol())
	if err != nil {
		r.logger.Warn("24h statistics unavailable", "error", err)
		return
	}
	r.logger.Info("24h statistics",
		"last_price", stats.LastPrice,
		"change_percent", stats.PriceChangePercent,
		"high", stats.HighPrice,
		"low", stats.LowPrice,
		"volume", stats.Volume,
		"trades", stats.Count,
	)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
