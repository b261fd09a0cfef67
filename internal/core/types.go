package core

import (
	"fmt"
	"strings"
	"time"
)

// Symbol is one of the supported coins
type Symbol int

const (
	ETH Symbol = iota + 1
	BTC
	BNB
)

// AllSymbols lists every supported coin in configuration order
var AllSymbols = []Symbol{ETH, BTC, BNB}

// Pair returns the exchange pair string
func (s Symbol) Pair() string {
	switch s {
	case ETH:
		return "ETHUSDT"
	case BTC:
		return "BTCUSDT"
	case BNB:
		return "BNBUSDT"
	default:
		return ""
	}
}

func (s Symbol) String() string {
	switch s {
	case ETH:
		return "ETH"
	case BTC:
		return "BTC"
	case BNB:
		return "BNB"
	default:
		return fmt.Sprintf("Symbol(%d)", int(s))
	}
}

// ParseSymbol resolves a coin name, case-insensitively
func ParseSymbol(name string) (Symbol, error) {
	for _, s := range AllSymbols {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol: %q", name)
}

// Interval is a kline interval
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

var validIntervals = map[Interval]struct{}{
	Interval1m: {}, Interval3m: {}, Interval5m: {}, Interval15m: {}, Interval30m: {},
	Interval1h: {}, Interval2h: {}, Interval4h: {}, Interval6h: {}, Interval8h: {},
	Interval12h: {}, Interval1d: {}, Interval3d: {}, Interval1w: {}, Interval1M: {},
}

// Valid reports whether the exchange accepts the interval
func (i Interval) Valid() bool {
	_, ok := validIntervals[i]
	return ok
}

// Candle is one kline bar
type Candle struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	CloseTime time.Time
	Count     int64
}

// Ticker24h holds rolling 24 hour statistics for a symbol
type Ticker24h struct {
	Symbol             string
	PriceChange        float64
	PriceChangePercent float64
	LastPrice          float64
	HighPrice          float64
	LowPrice           float64
	Volume             float64
	Count              int64
}

// Side is an order side
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Action is the outcome of one grid evaluation
type Action int

const (
	ActionHeld Action = iota
	ActionBought
	ActionSold
	// ActionDrifted means thresholds moved without a trade
	ActionDrifted
)

func (a Action) String() string {
	switch a {
	case ActionBought:
		return "bought"
	case ActionSold:
		return "sold"
	case ActionDrifted:
		return "drifted"
	default:
		return "held"
	}
}
