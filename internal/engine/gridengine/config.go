package gridengine

import (
	"trendgrid/internal/config"
	"trendgrid/internal/core"
)

// Config holds the configuration for one symbol's grid
type Config struct {
	Symbol           core.Symbol
	BuyPrice         float64
	SellPrice        float64
	ProfitRatio      float64
	DoubleThrowRatio float64
	Quantity         float64
	KlineInterval    core.Interval
	KlineLimit       int
}

// NewConfig builds an engine config from a validated coin entry and the runner settings
func NewConfig(entry config.CoinEntry, runner config.RunnerConfig) Config {
	return Config{
		Symbol:           entry.Symbol,
		BuyPrice:         entry.Coin.BuyPrice,
		SellPrice:        entry.Coin.SellPrice,
		ProfitRatio:      entry.Coin.ProfitRatio,
		DoubleThrowRatio: entry.Coin.DoubleThrowRatio,
		Quantity:         entry.Coin.Quantity,
		KlineInterval:    runner.KlineInterval,
		KlineLimit:       runner.KlineLimit,
	}
}

func (c Config) validate() error {
	coin := config.CoinConfig{
		BuyPrice:         c.BuyPrice,
		SellPrice:        c.SellPrice,
		ProfitRatio:      c.ProfitRatio,
		DoubleThrowRatio: c.DoubleThrowRatio,
		Quantity:         c.Quantity,
	}
	if err := coin.Validate(c.Symbol.String()); err != nil {
		return err
	}
	if c.Symbol.Pair() == "" {
		return config.ValidationError{Field: "symbol", Value: int(c.Symbol), Message: "unknown symbol"}
	}
	if !c.KlineInterval.Valid() {
		return config.ValidationError{Field: "runner.kline_interval", Value: c.KlineInterval, Message: "invalid interval"}
	}
	if c.KlineLimit <= 0 {
		return config.ValidationError{Field: "runner.kline_limit", Value: c.KlineLimit, Message: "must be positive"}
	}
	return nil
}
