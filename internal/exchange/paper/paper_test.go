package paper

import (
	"context"
	"errors"
	"testing"

	"trendgrid/internal/core"
	"trendgrid/internal/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrader_BuyThenSell(t *testing.T) {
	market := mock.NewMockExchange("mock")
	market.SetPrices(core.ETH, 1800, 1900)
	trader := NewTrader(market, mock.NewLogger())

	fill, err := trader.Buy(context.Background(), core.ETH, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, *fill)
	assert.Equal(t, 0.5, trader.Position(core.ETH))

	fill, err = trader.Sell(context.Background(), core.ETH, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1900.0, *fill)
	assert.Equal(t, 0.0, trader.Position(core.ETH))

	assert.Empty(t, market.Orders(), "paper trades never reach the exchange")
}

func TestTrader_SellWithoutPosition(t *testing.T) {
	market := mock.NewMockExchange("mock")
	market.SetPrices(core.BTC, 60000)
	trader := NewTrader(market, mock.NewLogger())

	fill, err := trader.Sell(context.Background(), core.BTC, 0.01)
	assert.Error(t, err)
	assert.Nil(t, fill)
}

func TestTrader_TickerError(t *testing.T) {
	market := mock.NewMockExchange("mock")
	market.PushTickerError(core.BNB, errors.New("timeout"))
	trader := NewTrader(market, mock.NewLogger())

	_, err := trader.Buy(context.Background(), core.BNB, 1)
	assert.Error(t, err)
	assert.Equal(t, 0.0, trader.Position(core.BNB))
}

func TestTrader_RepeatedLegsKeepExactPosition(t *testing.T) {
	market := mock.NewMockExchange("mock")
	market.SetPrices(core.ETH, 1800)
	trader := NewTrader(market, mock.NewLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := trader.Buy(ctx, core.ETH, 0.7)
		require.NoError(t, err)
	}
	assert.Equal(t, 2.1, trader.Position(core.ETH))

	for i := 0; i < 3; i++ {
		fill, err := trader.Sell(ctx, core.ETH, 0.7)
		require.NoError(t, err, "sell %d", i+1)
		require.NotNil(t, fill)
	}
	assert.Equal(t, 0.0, trader.Position(core.ETH))

	_, err := trader.Sell(ctx, core.ETH, 0.7)
	assert.Error(t, err)
}
