package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	"trendgrid/internal/infrastructure/health"
	"trendgrid/internal/mock"
	apperrors "trendgrid/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runnerConfig() config.RunnerConfig {
	return config.RunnerConfig{
		Cooldown:        time.Millisecond,
		ErrorBackoff:    time.Millisecond,
		PollInterval:    time.Millisecond,
		KlineInterval:   core.Interval1h,
		KlineLimit:      24,
		ShutdownTimeout: time.Second,
	}
}

func coin(symbol core.Symbol, buy, sell float64) config.CoinEntry {
	return config.CoinEntry{
		Symbol: symbol,
		Coin: config.CoinConfig{
			BuyPrice:         buy,
			SellPrice:        sell,
			ProfitRatio:      0.03,
			DoubleThrowRatio: 0.02,
			Quantity:         1,
		},
	}
}

func runAsync(ctx context.Context, s *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}

func TestRun_PingFailure(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	ex.SetPingError(apperrors.Network("ping", errors.New("no route to host")))
	ex.SetPrices(core.ETH, 101)

	s := New(ex, ex, []config.CoinEntry{coin(core.ETH, 100, 103)}, runnerConfig(), mock.NewLogger())
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnectivity))
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.Equal(t, 0, ex.TickerCalls(core.ETH), "no runner starts after a failed ping")
}

func TestRun_ZeroCoins(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	logger := mock.NewLogger()

	s := New(ex, ex, nil, runnerConfig(), logger)
	assert.NoError(t, s.Run(context.Background()))
	assert.True(t, logger.Contains("WARN", "No coins configured, nothing to trade"))
}

func TestRun_StartsRunnersAndStopsOnCancel(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	ex.SetPrices(core.ETH, 1801)
	ex.SetPrices(core.BTC, 60100)
	hm := health.NewHealthManager(nil)
	var ready atomic.Bool

	s := New(ex, ex, []config.CoinEntry{
		coin(core.ETH, 1800, 1850),
		coin(core.BTC, 60000, 61000),
	}, runnerConfig(), mock.NewLogger(),
		WithHealth(hm),
		WithReadyHook(func() { ready.Store(true) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	require.Eventually(t, func() bool {
		return ex.TickerCalls(core.ETH) > 2 && ex.TickerCalls(core.BTC) > 2
	}, 2*time.Second, time.Millisecond)
	assert.True(t, ready.Load())
	assert.Equal(t, []string{"runner.BTCUSDT", "runner.ETHUSDT"}, hm.Components())
	assert.True(t, hm.IsHealthy())

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.False(t, hm.IsHealthy(), "stopped runners report unhealthy")
}

func componentFields(fields []string) []string {
	var out []string
	for _, f := range fields {
		if strings.HasPrefix(f, "component=") {
			out = append(out, f)
		}
	}
	return out
}

func TestRun_ChildLoggersAreNotSupervisorScoped(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	ex.SetPrices(core.ETH, 99)
	ex.SetKlines(core.ETH, []core.Candle{{Open: 100, High: 102, Low: 100, Close: 101}})
	logger := mock.NewLogger()

	s := New(ex, ex, []config.CoinEntry{coin(core.ETH, 100, 103)}, runnerConfig(), logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	require.Eventually(t, func() bool {
		return logger.Contains("INFO", "Bought") && logger.Contains("INFO", "Symbol runner started")
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, waitDone(t, done))

	for _, e := range logger.Records() {
		assert.LessOrEqual(t, len(componentFields(e.Fields)), 1, "%s %s carries %v", e.Level, e.Msg, e.Fields)
		switch e.Msg {
		case "Exchange reachable":
			assert.Equal(t, []string{"component=supervisor"}, e.Fields)
		case "Bought":
			assert.Equal(t, []string{"symbol=ETHUSDT"}, e.Fields)
		case "Symbol runner started":
			assert.Equal(t, []string{"component=symbol_runner", "symbol=ETHUSDT"}, e.Fields)
		}
	}
}

func TestRun_TerminalRunnerErrorIsIsolated(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	// ETH buys at 100 and then reads a zero-low candle
	ex.SetPrices(core.ETH, 100)
	ex.SetKlines(core.ETH, []core.Candle{{Open: 100, High: 101, Low: 0}})
	ex.SetPrices(core.BNB, 501)
	logger := mock.NewLogger()
	hm := health.NewHealthManager(nil)

	s := New(ex, ex, []config.CoinEntry{
		coin(core.ETH, 100, 103),
		coin(core.BNB, 500, 520),
	}, runnerConfig(), logger, WithHealth(hm))

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	require.Eventually(t, func() bool {
		return logger.Contains("ERROR", "Symbol runner terminated")
	}, 2*time.Second, time.Millisecond)

	calls := ex.TickerCalls(core.BNB)
	require.Eventually(t, func() bool { return ex.TickerCalls(core.BNB) > calls+2 }, time.Second, time.Millisecond)

	status := hm.GetStatus()
	assert.Contains(t, status["runner.ETHUSDT"], "Unhealthy")
	assert.Equal(t, "Healthy", status["runner.BNBUSDT"])

	cancel()
	assert.NoError(t, waitDone(t, done), "runner errors are not propagated")
}

func TestRun_ReturnsWhenAllRunnersFinish(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	ex.SetPrices(core.BTC, 100)
	ex.SetKlines(core.BTC, []core.Candle{{Open: 100, High: 101, Low: 0}})
	logger := mock.NewLogger()

	s := New(ex, ex, []config.CoinEntry{coin(core.BTC, 100, 103)}, runnerConfig(), logger)
	assert.NoError(t, waitDone(t, runAsync(context.Background(), s)))
	assert.True(t, logger.Contains("INFO", "All symbol runners finished"))
}

// stuckMarket ignores cancellation once released prices run out
type stuckMarket struct {
	*mock.MockExchange
	release chan struct{}
	entered chan struct{}
	once    atomic.Bool
}

func (m *stuckMarket) TickerPrice(ctx context.Context, symbol core.Symbol) (float64, error) {
	if m.once.CompareAndSwap(false, true) {
		close(m.entered)
	}
	<-m.release
	return 0, errors.New("released")
}

func TestRun_ShutdownTimeout(t *testing.T) {
	ex := mock.NewMockExchange("mock")
	market := &stuckMarket{MockExchange: ex, release: make(chan struct{}), entered: make(chan struct{})}
	t.Cleanup(func() { close(market.release) })
	logger := mock.NewLogger()

	cfg := runnerConfig()
	cfg.ShutdownTimeout = 20 * time.Millisecond
	s := New(market, ex, []config.CoinEntry{coin(core.ETH, 100, 103)}, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	select {
	case <-market.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never polled")
	}

	cancel()
	start := time.Now()
	assert.NoError(t, waitDone(t, done))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, logger.Contains("WARN", "Symbol runners did not stop in time"))
}
