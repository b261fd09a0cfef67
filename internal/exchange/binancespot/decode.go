package binancespot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"trendgrid/internal/core"

	"github.com/shopspring/decimal"
)

// flexFloat decodes Binance numeric strings; an empty string decodes to 0
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(d.InexactFloat64())
	return nil
}

// kline tuple positions
const (
	klineOpenTime = iota
	klineOpen
	klineHigh
	klineLow
	klineClose
	klineVolume
	klineCloseTime
	klineQuoteVolume
	klineCount
	klineMinFields
)

func decodeKlines(body []byte) ([]core.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, err
	}

	candles := make([]core.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := decodeKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func decodeKline(row []json.RawMessage) (core.Candle, error) {
	if len(row) < klineMinFields {
		return core.Candle{}, fmt.Errorf("expected at least %d fields, got %d", klineMinFields, len(row))
	}

	var (
		openTime, closeTime, count int64
		open, high, low, cl        flexFloat
	)
	fields := []struct {
		idx int
		dst interface{}
	}{
		{klineOpenTime, &openTime},
		{klineOpen, &open},
		{klineHigh, &high},
		{klineLow, &low},
		{klineClose, &cl},
		{klineCloseTime, &closeTime},
		{klineCount, &count},
	}
	for _, f := range fields {
		if err := json.Unmarshal(row[f.idx], f.dst); err != nil {
			return core.Candle{}, fmt.Errorf("field %d: %w", f.idx, err)
		}
	}

	return core.Candle{
		OpenTime:  time.UnixMilli(openTime),
		Open:      float64(open),
		High:      float64(high),
		Low:       float64(low),
		Close:     float64(cl),
		CloseTime: time.UnixMilli(closeTime),
		Count:     count,
	}, nil
}
