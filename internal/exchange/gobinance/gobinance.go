// Package gobinance implements the market and trade clients on top of the go-binance SDK
package gobinance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"
	"trendgrid/pkg/telemetry"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Binance error codes with a standardized meaning
var errorKinds = map[int]error{
	-1003: apperrors.ErrRateLimitExceeded,
	-1013: apperrors.ErrInvalidOrderParameter,
	-1021: apperrors.ErrTimestampOutOfBounds,
	-1111: apperrors.ErrInvalidOrderParameter,
	-1121: apperrors.ErrInvalidSymbol,
	-2010: apperrors.ErrInsufficientFunds,
	-2015: apperrors.ErrAuthenticationFailed,
}

// Exchange implements core.Exchange with github.com/adshao/go-binance/v2
type Exchange struct {
	client     *binance.Client
	limiter    *rate.Limiter
	recvWindow int64
	logger     core.ILogger
	metrics    *telemetry.MetricsHolder
}

// New creates an SDK backed exchange
func New(cfg config.MarketConfig, logger core.ILogger) (*Exchange, error) {
	client := binance.NewClient(cfg.APIKey.Reveal(), cfg.SecretKey.Reveal())
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	client.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	return &Exchange{
		client:     client,
		limiter:    limiter,
		recvWindow: cfg.RecvWindow,
		logger:     logger.WithField("exchange", "binance_sdk"),
		metrics:    telemetry.GetGlobalMetrics(),
	}, nil
}

func (e *Exchange) GetName() string {
	return "binance_sdk"
}

func (e *Exchange) Ping(ctx context.Context) error {
	if err := e.wait(ctx, "ping"); err != nil {
		return err
	}
	defer e.observe(ctx, "ping", time.Now())
	if err := e.client.NewPingService().Do(ctx); err != nil {
		return wrapError("ping", err)
	}
	return nil
}

func (e *Exchange) TickerPrice(ctx context.Context, symbol core.Symbol) (float64, error) {
	if err := e.wait(ctx, "ticker price"); err != nil {
		return 0, err
	}
	defer e.observe(ctx, "ticker_price", time.Now())

	prices, err := e.client.NewListPricesService().Symbol(symbol.Pair()).Do(ctx)
	if err != nil {
		return 0, wrapError("ticker price", err)
	}
	if len(prices) == 0 {
		return 0, apperrors.Decode("ticker price", fmt.Errorf("no price for %s", symbol.Pair()))
	}
	price, err := parseFloat(prices[0].Price)
	if err != nil || price <= 0 {
		return 0, apperrors.Decode("ticker price", fmt.Errorf("invalid price %q", prices[0].Price))
	}
	return price, nil
}

func (e *Exchange) Klines(ctx context.Context, symbol core.Symbol, interval core.Interval, limit int) ([]core.Candle, error) {
	if err := e.wait(ctx, "klines"); err != nil {
		return nil, err
	}
	defer e.observe(ctx, "klines", time.Now())

	klines, err := e.client.NewKlinesService().
		Symbol(symbol.Pair()).
		Interval(string(interval)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapError("klines", err)
	}

	candles := make([]core.Candle, 0, len(klines))
	for i, k := range klines {
		c := core.Candle{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Count:     k.TradeNum,
		}
		for _, f := range []struct {
			raw string
			dst *float64
		}{{k.Open, &c.Open}, {k.High, &c.High}, {k.Low, &c.Low}, {k.Close, &c.Close}} {
			if *f.dst, err = parseFloat(f.raw); err != nil {
				return nil, apperrors.Decode("klines", fmt.Errorf("kline %d: %w", i, err))
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (e *Exchange) Ticker24h(ctx context.Context, symbol core.Symbol) (*core.Ticker24h, error) {
	if err := e.wait(ctx, "24hr ticker"); err != nil {
		return nil, err
	}
	defer e.observe(ctx, "ticker_24hr", time.Now())

	stats, err := e.client.NewListPriceChangeStatsService().Symbol(symbol.Pair()).Do(ctx)
	if err != nil {
		return nil, wrapError("24hr ticker", err)
	}
	if len(stats) == 0 {
		return nil, apperrors.Decode("24hr ticker", fmt.Errorf("no statistics for %s", symbol.Pair()))
	}
	s := stats[0]

	t := &core.Ticker24h{Symbol: s.Symbol, Count: s.Count}
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{s.PriceChange, &t.PriceChange},
		{s.PriceChangePercent, &t.PriceChangePercent},
		{s.LastPrice, &t.LastPrice},
		{s.HighPrice, &t.HighPrice},
		{s.LowPrice, &t.LowPrice},
		{s.Volume, &t.Volume},
	} {
		if *f.dst, err = parseFloat(f.raw); err != nil {
			return nil, apperrors.Decode("24hr ticker", err)
		}
	}
	return t, nil
}

func (e *Exchange) Buy(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return e.placeMarketOrder(ctx, symbol, binance.SideTypeBuy, quantity)
}

func (e *Exchange) Sell(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return e.placeMarketOrder(ctx, symbol, binance.SideTypeSell, quantity)
}

func (e *Exchange) placeMarketOrder(ctx context.Context, symbol core.Symbol, side binance.SideType, quantity float64) (*float64, error) {
	if err := e.wait(ctx, "place order"); err != nil {
		return nil, err
	}
	defer e.observe(ctx, "order", time.Now())

	var opts []binance.RequestOption
	if e.recvWindow > 0 {
		opts = append(opts, binance.WithRecvWindow(e.recvWindow))
	}

	res, err := e.client.NewCreateOrderService().
		Symbol(symbol.Pair()).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(decimal.NewFromFloat(quantity).String()).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		NewClientOrderID("tg" + strings.ReplaceAll(uuid.NewString(), "-", "")).
		Do(ctx, opts...)
	if err != nil {
		return nil, wrapError("place order", err)
	}

	if len(res.Fills) == 0 {
		e.logger.Warn("Order accepted without fills",
			"symbol", res.Symbol, "side", side, "order_id", res.OrderID, "status", res.Status)
		return nil, nil
	}

	price, err := parseFloat(res.Fills[0].Price)
	if err != nil {
		return nil, apperrors.Decode("place order", err)
	}
	return &price, nil
}

func (e *Exchange) wait(ctx context.Context, op string) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return apperrors.Network(op, err)
	}
	return nil
}

func (e *Exchange) observe(ctx context.Context, op string, start time.Time) {
	e.metrics.RecordExchangeLatency(ctx, op, float64(time.Since(start).Microseconds())/1000)
}

func wrapError(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, apperrors.NewExchangeRejected(int(apiErr.Code), apiErr.Message, errorKinds))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.Decode(op, err)
	}
	return apperrors.Network(op, err)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
