// Package supervisor starts one SymbolRunner per configured coin and joins them
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	"trendgrid/internal/engine/gridengine"
	"trendgrid/internal/trading/runner"
	"trendgrid/pkg/concurrency"
	apperrors "trendgrid/pkg/errors"
)

// Supervisor owns the runner lifecycle for all coins
type Supervisor struct {
	market  core.MarketDataClient
	trade   core.TradeClient
	coins   []config.CoinEntry
	cfg     config.RunnerConfig
	health  core.IHealthMonitor
	base    core.ILogger // unscoped, handed to engines, runners and the pool
	logger  core.ILogger
	onReady func()
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithHealth registers each runner with hm
func WithHealth(hm core.IHealthMonitor) Option {
	return func(s *Supervisor) { s.health = hm }
}

// WithReadyHook is called once every runner has been submitted
func WithReadyHook(fn func()) Option {
	return func(s *Supervisor) { s.onReady = fn }
}

// New creates a supervisor for the given coins
func New(market core.MarketDataClient, trade core.TradeClient, coins []config.CoinEntry, cfg config.RunnerConfig, logger core.ILogger, opts ...Option) *Supervisor {
	s := &Supervisor{
		market: market,
		trade:  trade,
		coins:  coins,
		cfg:    cfg,
		base:   logger,
		logger: logger.WithField("component", "supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run pings the exchange once, then runs every coin until ctx is cancelled.
// Only a failed ping or an engine construction error is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.market.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrConnectivity, err)
	}
	s.logger.Info("Exchange reachable")

	if len(s.coins) == 0 {
		s.logger.Warn("No coins configured, nothing to trade")
		return nil
	}

	runners := make([]*runner.SymbolRunner, 0, len(s.coins))
	for _, coin := range s.coins {
		eng, err := gridengine.NewGridEngine(gridengine.NewConfig(coin, s.cfg), s.market, s.trade, s.base)
		if err != nil {
			return fmt.Errorf("engine %s: %w", coin.Symbol, err)
		}
		r := runner.NewSymbolRunner(eng, s.market, s.cfg, s.base)
		if s.health != nil {
			s.health.Register("runner."+coin.Symbol.Pair(), r.HealthCheck)
		}
		runners = append(runners, r)
	}

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:       "symbol_runners",
		MaxWorkers: len(runners),
	}, s.base)

	for _, r := range runners {
		r := r
		if err := pool.Submit(func() { s.runOne(ctx, r) }); err != nil {
			go pool.Stop()
			return fmt.Errorf("submit %s runner: %w", r.Symbol(), err)
		}
	}
	s.logger.Info("Symbol runners started", "count", len(runners))
	if s.onReady != nil {
		s.onReady()
	}

	finished := make(chan struct{})
	go func() {
		pool.Wait(0)
		close(finished)
	}()

	select {
	case <-finished:
		pool.Stop()
		s.logger.Info("All symbol runners finished")
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down symbol runners", "timeout", s.cfg.ShutdownTimeout)
	if !waitFor(finished, s.cfg.ShutdownTimeout) {
		// stuck workers would block Stop
		go pool.Stop()
		s.logger.Warn("Symbol runners did not stop in time", "timeout", s.cfg.ShutdownTimeout)
		return nil
	}
	pool.Stop()
	s.logger.Info("All symbol runners stopped")
	return nil
}

func (s *Supervisor) runOne(ctx context.Context, r *runner.SymbolRunner) {
	err := r.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	default:
		s.logger.Error("Symbol runner terminated", "symbol", r.Symbol().Pair(), "error", err, "kind", apperrors.Kind(err))
	}
}

func waitFor(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
