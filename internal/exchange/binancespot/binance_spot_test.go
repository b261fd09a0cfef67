package binancespot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	"trendgrid/internal/mock"
	apperrors "trendgrid/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExchange(t *testing.T, handler http.HandlerFunc) *BinanceSpotExchange {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e, err := NewBinanceSpotExchange(config.MarketConfig{
		BaseURL:    server.URL,
		APIKey:     "test-api-key",
		SecretKey:  "test-secret",
		RecvWindow: 5000,
		Timeout:    5 * time.Second,
	}, mock.NewLogger())
	require.NoError(t, err)
	return e
}

func TestSign(t *testing.T) {
	secret := "2b5eb11e18796d12d88f13dc27dbbd02c2cc51ff7059765ed9821957d82bb4d9"
	payload := "symbol=BTCUSDT&side=BUY&type=LIMIT&quantity=1&price=9000&timeInForce=GTC&recvWindow=5000&timestamp=1591702613943"

	assert.Equal(t, "3c661234138461fcc7a7d8746c6558c9842d4e10870d2ecbedf7777cad694af9", Sign(secret, payload))
}

func TestSignRequest(t *testing.T) {
	e := &BinanceSpotExchange{
		apiKey:     "key",
		secretKey:  "secret",
		recvWindow: 5000,
		now:        func() time.Time { return time.UnixMilli(1591702613943) },
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.binance.com/api/v3/order?symbol=ETHUSDT&side=BUY", nil)
	require.NoError(t, err)
	require.NoError(t, e.SignRequest(req))

	assert.Equal(t, "key", req.Header.Get("X-MBX-APIKEY"))

	raw := req.URL.RawQuery
	idx := strings.LastIndex(raw, "&signature=")
	require.Greater(t, idx, 0, "signature must be appended last")

	payload := raw[:idx]
	assert.Equal(t, "recvWindow=5000&side=BUY&symbol=ETHUSDT&timestamp=1591702613943", payload)
	assert.Equal(t, Sign("secret", payload), raw[idx+len("&signature="):])
}

func TestPing(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ping", r.URL.Path)
		_, _ = w.Write([]byte("{}"))
	})
	assert.NoError(t, e.Ping(context.Background()))

	empty := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {})
	err := empty.Ping(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrConnectivity))
}

func TestTickerPrice(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.Header.Get("X-MBX-APIKEY"), "public endpoints are not signed")
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"1834.51000000"}`))
	})

	price, err := e.TickerPrice(context.Background(), core.ETH)
	require.NoError(t, err)
	assert.InDelta(t, 1834.51, price, 1e-9)
}

func TestTickerPrice_DecodeError(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"abc"}`))
	})

	_, err := e.TickerPrice(context.Background(), core.ETH)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDecode))
}

func TestKlines(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "1h", q.Get("interval"))
		assert.Equal(t, "2", q.Get("limit"))
		_, _ = w.Write([]byte(`[
			[1499040000000,"10.0","11.0","9.0","10.5","148976.11",1499043599999,"2434.19",308,"1756.87","28.46","0"],
			[1499043600000,"20.0","19.0","18.0","18.5","",1499047199999,"",12,"","","0"]
		]`))
	})

	candles, err := e.Klines(context.Background(), core.BTC, core.Interval1h, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, 10.0, candles[0].Open)
	assert.Equal(t, 11.0, candles[0].High)
	assert.Equal(t, 9.0, candles[0].Low)
	assert.Equal(t, 10.5, candles[0].Close)
	assert.Equal(t, int64(308), candles[0].Count)
	assert.Equal(t, time.UnixMilli(1499040000000), candles[0].OpenTime)
	assert.Equal(t, time.UnixMilli(1499043599999), candles[0].CloseTime)
	assert.True(t, candles[0].OpenTime.Before(candles[1].OpenTime), "oldest first")
	assert.Equal(t, int64(12), candles[1].Count)
}

func TestKlines_ShortTuple(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1499040000000,"10.0","11.0"]]`))
	})

	_, err := e.Klines(context.Background(), core.BTC, core.Interval1h, 1)
	assert.True(t, errors.Is(err, apperrors.ErrDecode))
}

func TestTicker24h(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		_, _ = w.Write([]byte(`{"symbol":"BNBUSDT","priceChange":"-2.5","priceChangePercent":"-0.8",
			"lastPrice":"310.2","highPrice":"320","lowPrice":"305","volume":"12345.6","count":98765}`))
	})

	tk, err := e.Ticker24h(context.Background(), core.BNB)
	require.NoError(t, err)
	assert.Equal(t, "BNBUSDT", tk.Symbol)
	assert.Equal(t, -2.5, tk.PriceChange)
	assert.Equal(t, 310.2, tk.LastPrice)
	assert.Equal(t, int64(98765), tk.Count)
}

func TestBuy_FullResponse(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-MBX-APIKEY"))

		q := r.URL.Query()
		assert.Equal(t, "ETHUSDT", q.Get("symbol"))
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "0.05", q.Get("quantity"))
		assert.Equal(t, "FULL", q.Get("newOrderRespType"))
		assert.NotEmpty(t, q.Get("timestamp"))
		assert.LessOrEqual(t, len(q.Get("newClientOrderId")), 36)

		idx := strings.LastIndex(r.URL.RawQuery, "&signature=")
		require.Greater(t, idx, 0)
		assert.Equal(t, Sign("test-secret", r.URL.RawQuery[:idx]), q.Get("signature"))

		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","orderId":28,"clientOrderId":"x","transactTime":1507725176595,
			"status":"FILLED","executedQty":"0.05","fills":[{"price":"1801.25","qty":"0.03","commission":"0","commissionAsset":"ETH"},
			{"price":"1801.30","qty":"0.02","commission":"0","commissionAsset":"ETH"}]}`))
	})

	fill, err := e.Buy(context.Background(), core.ETH, 0.05)
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.Equal(t, 1801.25, *fill)
}

func TestSell_NoFills(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SELL", r.URL.Query().Get("side"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","orderId":29,"status":"NEW","fills":[]}`))
	})

	fill, err := e.Sell(context.Background(), core.ETH, 1)
	require.NoError(t, err)
	assert.Nil(t, fill)
}

func TestOrder_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     []error
		code   int
	}{
		{"insufficient funds", http.StatusBadRequest, `{"code":-2010,"msg":"Account has insufficient balance for requested action."}`,
			[]error{apperrors.ErrExchangeRejected, apperrors.ErrInsufficientFunds}, -2010},
		{"auth", http.StatusUnauthorized, `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`,
			[]error{apperrors.ErrExchangeRejected, apperrors.ErrAuthenticationFailed}, -2015},
		{"unknown code", http.StatusBadRequest, `{"code":-1100,"msg":"Illegal characters found in parameter."}`,
			[]error{apperrors.ErrExchangeRejected}, -1100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			fill, err := e.Buy(context.Background(), core.BTC, 0.001)
			require.Error(t, err)
			assert.Nil(t, fill)
			for _, target := range tt.is {
				assert.True(t, errors.Is(err, target), "expected %v in %v", target, err)
			}
			var rejected *apperrors.ExchangeRejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.code, rejected.Code)
		})
	}
}

func TestOrder_BadRequestWithoutPayload(t *testing.T) {
	e := newTestExchange(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	})

	_, err := e.Sell(context.Background(), core.BTC, 0.001)
	assert.True(t, errors.Is(err, apperrors.ErrDecode))
}

func TestNewClientOrderID(t *testing.T) {
	a, b := newClientOrderID(), newClientOrderID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 34)
	_, err := url.ParseQuery("id=" + a)
	assert.NoError(t, err)
}
