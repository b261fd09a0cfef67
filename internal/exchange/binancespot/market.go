package binancespot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"
)

// Ping checks connectivity; Binance answers an empty JSON object
func (e *BinanceSpotExchange) Ping(ctx context.Context) error {
	defer e.observe(ctx, "ping", time.Now())

	body, err := e.client.Get(ctx, endpoint("ping"), nil)
	if err != nil {
		return e.wrapError("ping", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("ping: %w: empty response", apperrors.ErrConnectivity)
	}
	return nil
}

// TickerPrice returns the latest trade price
func (e *BinanceSpotExchange) TickerPrice(ctx context.Context, symbol core.Symbol) (float64, error) {
	defer e.observe(ctx, "ticker_price", time.Now())

	body, err := e.client.Get(ctx, endpoint("ticker/price"), url.Values{"symbol": {symbol.Pair()}})
	if err != nil {
		return 0, e.wrapError("ticker price", err)
	}

	var res struct {
		Symbol string    `json:"symbol"`
		Price  flexFloat `json:"price"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, apperrors.Decode("ticker price", err)
	}
	if res.Price <= 0 {
		return 0, apperrors.Decode("ticker price", fmt.Errorf("non-positive price %v for %s", float64(res.Price), symbol.Pair()))
	}
	return float64(res.Price), nil
}

// Klines returns the most recent candles, oldest first
func (e *BinanceSpotExchange) Klines(ctx context.Context, symbol core.Symbol, interval core.Interval, limit int) ([]core.Candle, error) {
	defer e.observe(ctx, "klines", time.Now())

	params := url.Values{
		"symbol":   {symbol.Pair()},
		"interval": {string(interval)},
		"limit":    {strconv.Itoa(limit)},
	}
	body, err := e.client.Get(ctx, endpoint("klines"), params)
	if err != nil {
		return nil, e.wrapError("klines", err)
	}

	candles, err := decodeKlines(body)
	if err != nil {
		return nil, apperrors.Decode("klines", err)
	}
	return candles, nil
}

// Ticker24h returns rolling 24 hour statistics
func (e *BinanceSpotExchange) Ticker24h(ctx context.Context, symbol core.Symbol) (*core.Ticker24h, error) {
	defer e.observe(ctx, "ticker_24hr", time.Now())

	body, err := e.client.Get(ctx, endpoint("ticker/24hr"), url.Values{"symbol": {symbol.Pair()}})
	if err != nil {
		return nil, e.wrapError("24hr ticker", err)
	}

	var res struct {
		Symbol             string    `json:"symbol"`
		PriceChange        flexFloat `json:"priceChange"`
		PriceChangePercent flexFloat `json:"priceChangePercent"`
		LastPrice          flexFloat `json:"lastPrice"`
		HighPrice          flexFloat `json:"highPrice"`
		LowPrice           flexFloat `json:"lowPrice"`
		Volume             flexFloat `json:"volume"`
		Count              int64     `json:"count"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, apperrors.Decode("24hr ticker", err)
	}

	return &core.Ticker24h{
		Symbol:             res.Symbol,
		PriceChange:        float64(res.PriceChange),
		PriceChangePercent: float64(res.PriceChangePercent),
		LastPrice:          float64(res.LastPrice),
		HighPrice:          float64(res.HighPrice),
		LowPrice:           float64(res.LowPrice),
		Volume:             float64(res.Volume),
		Count:              res.Count,
	}, nil
}
