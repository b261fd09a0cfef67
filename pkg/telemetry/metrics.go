package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricOrdersPlacedTotal = "trendgrid_orders_placed_total"
	MetricOrdersFilledTotal = "trendgrid_orders_filled_total"
	MetricPnLRealizedTotal  = "trendgrid_pnl_realized_total"
	MetricVolumeTotal       = "trendgrid_volume_total"
	MetricTickErrorsTotal   = "trendgrid_tick_errors_total"
	MetricLatencyExchange   = "trendgrid_latency_exchange_ms"
	MetricGridBuyPrice      = "trendgrid_grid_buy_price"
	MetricGridSellPrice     = "trendgrid_grid_sell_price"
	MetricOpenLegs          = "trendgrid_open_legs"
)

// GridLevels is the observable grid state of one symbol
type GridLevels struct {
	Buy      float64
	Sell     float64
	OpenLegs int64
}

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	OrdersPlacedTotal metric.Int64Counter
	OrdersFilledTotal metric.Int64Counter
	PnLRealizedTotal  metric.Float64UpDownCounter
	VolumeTotal       metric.Float64Counter
	TickErrorsTotal   metric.Int64Counter
	LatencyExchange   metric.Float64Histogram
	GridBuyPrice      metric.Float64ObservableGauge
	GridSellPrice     metric.Float64ObservableGauge
	OpenLegs          metric.Int64ObservableGauge

	// State for observable gauges
	mu     sync.RWMutex
	levels map[string]GridLevels
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder.
// Instruments come from the global meter provider, so they start exporting once Setup installs one.
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			levels: make(map[string]GridLevels),
		}
		if err := globalMetrics.InitMetrics(otel.Meter("trendgrid")); err != nil {
			otel.Handle(err)
		}
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.OrdersPlacedTotal, err = meter.Int64Counter(MetricOrdersPlacedTotal, metric.WithDescription("Total orders placed"))
	if err != nil {
		return err
	}

	m.OrdersFilledTotal, err = meter.Int64Counter(MetricOrdersFilledTotal, metric.WithDescription("Total orders filled"))
	if err != nil {
		return err
	}

	m.PnLRealizedTotal, err = meter.Float64UpDownCounter(MetricPnLRealizedTotal, metric.WithDescription("Cumulative realized profit/loss in quote asset"))
	if err != nil {
		return err
	}

	m.VolumeTotal, err = meter.Float64Counter(MetricVolumeTotal, metric.WithDescription("Total trading volume in base asset"))
	if err != nil {
		return err
	}

	m.TickErrorsTotal, err = meter.Int64Counter(MetricTickErrorsTotal, metric.WithDescription("Tick-local errors by kind"))
	if err != nil {
		return err
	}

	m.LatencyExchange, err = meter.Float64Histogram(MetricLatencyExchange, metric.WithDescription("Latency of exchange API calls"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	// Observables
	m.GridBuyPrice, err = meter.Float64ObservableGauge(MetricGridBuyPrice, metric.WithDescription("Current buy threshold"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, lv := range m.levels {
				obs.Observe(lv.Buy, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.GridSellPrice, err = meter.Float64ObservableGauge(MetricGridSellPrice, metric.WithDescription("Current sell threshold"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, lv := range m.levels {
				obs.Observe(lv.Sell, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.OpenLegs, err = meter.Int64ObservableGauge(MetricOpenLegs, metric.WithDescription("Open buy legs waiting to be sold"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, lv := range m.levels {
				obs.Observe(lv.OpenLegs, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	return err
}

// Helpers to record trading activity

func (m *MetricsHolder) RecordOrder(ctx context.Context, symbol, side string) {
	m.OrdersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", side),
	))
}

func (m *MetricsHolder) RecordFill(ctx context.Context, symbol, side string, quantity float64) {
	attrs := metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", side),
	)
	m.OrdersFilledTotal.Add(ctx, 1, attrs)
	m.VolumeTotal.Add(ctx, quantity, attrs)
}

func (m *MetricsHolder) RecordProfit(ctx context.Context, symbol string, profit float64) {
	m.PnLRealizedTotal.Add(ctx, profit, metric.WithAttributes(attribute.String("symbol", symbol)))
}

func (m *MetricsHolder) RecordTickError(ctx context.Context, symbol, kind string) {
	m.TickErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("kind", kind),
	))
}

func (m *MetricsHolder) RecordExchangeLatency(ctx context.Context, op string, ms float64) {
	m.LatencyExchange.Record(ctx, ms, metric.WithAttributes(attribute.String("op", op)))
}

// SetGridLevels updates the observable grid state for a symbol
func (m *MetricsHolder) SetGridLevels(symbol string, levels GridLevels) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[symbol] = levels
}

// GridLevelsFor returns the last recorded grid state
func (m *MetricsHolder) GridLevelsFor(symbol string) (GridLevels, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lv, ok := m.levels[symbol]
	return lv, ok
}
