// Package exchange provides exchange implementations
package exchange

import (
	"fmt"
	"strings"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	"trendgrid/internal/exchange/binancespot"
	"trendgrid/internal/exchange/gobinance"
	"trendgrid/internal/exchange/paper"
)

// Clients holds the shared market and trade handles injected into every runner
type Clients struct {
	Name   string
	Market core.MarketDataClient
	Trade  core.TradeClient
}

// NewClients creates the exchange clients selected by market.driver
func NewClients(cfg config.MarketConfig, logger core.ILogger) (*Clients, error) {
	var exch core.Exchange
	var err error

	switch strings.ToLower(cfg.Driver) {
	case "", "rest":
		exch, err = binancespot.NewBinanceSpotExchange(cfg, logger)
	case "sdk":
		exch, err = gobinance.New(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported market driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exchange: %w", cfg.Driver, err)
	}

	clients := &Clients{
		Name:   exch.GetName(),
		Market: exch,
		Trade:  exch,
	}

	if cfg.Paper {
		logger.Warn("Paper trading enabled, orders will not be sent", "exchange", clients.Name)
		clients.Name += "+paper"
		clients.Trade = paper.NewTrader(exch, logger)
	}

	return clients, nil
}
