package binancespot

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	TransactTime  int64  `json:"transactTime"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	Fills         []struct {
		Price           flexFloat `json:"price"`
		Qty             flexFloat `json:"qty"`
		Commission      flexFloat `json:"commission"`
		CommissionAsset string    `json:"commissionAsset"`
	} `json:"fills"`
}

// Buy places a market buy order
func (e *BinanceSpotExchange) Buy(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return e.placeMarketOrder(ctx, symbol, core.SideBuy, quantity)
}

// Sell places a market sell order
func (e *BinanceSpotExchange) Sell(ctx context.Context, symbol core.Symbol, quantity float64) (*float64, error) {
	return e.placeMarketOrder(ctx, symbol, core.SideSell, quantity)
}

func (e *BinanceSpotExchange) placeMarketOrder(ctx context.Context, symbol core.Symbol, side core.Side, quantity float64) (*float64, error) {
	defer e.observe(ctx, "order", time.Now())

	params := url.Values{
		"symbol":           {symbol.Pair()},
		"side":             {string(side)},
		"type":             {"MARKET"},
		"quantity":         {decimal.NewFromFloat(quantity).String()},
		"newOrderRespType": {"FULL"},
		"newClientOrderId": {newClientOrderID()},
	}

	body, err := e.client.SignedPost(ctx, endpoint("order"), params)
	if err != nil {
		return nil, e.wrapError("place order", err)
	}

	var res orderResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, apperrors.Decode("place order", err)
	}

	if len(res.Fills) == 0 {
		e.logger.Warn("Order accepted without fills",
			"symbol", res.Symbol, "side", side, "order_id", res.OrderID, "status", res.Status)
		return nil, nil
	}

	price := float64(res.Fills[0].Price)
	e.logger.Debug("Order filled",
		"symbol", res.Symbol, "side", side, "order_id", res.OrderID,
		"client_order_id", res.ClientOrderID, "price", price, "executed_qty", res.ExecutedQty)
	return &price, nil
}

// newClientOrderID stays within Binance's 36 character limit
func newClientOrderID() string {
	return "tg" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
