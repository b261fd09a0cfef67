// Package binancespot provides the Binance Spot REST implementation of the market and trade clients
package binancespot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trendgrid/internal/config"
	"trendgrid/internal/core"
	pkghttp "trendgrid/pkg/http"
	"trendgrid/pkg/telemetry"
)

const (
	defaultSpotURL = "https://api.binance.com"
	apiPrefix      = "/api/v3/"
)

// BinanceSpotExchange implements core.Exchange for Binance Spot
type BinanceSpotExchange struct {
	apiKey     string
	secretKey  string
	recvWindow int64
	client     *pkghttp.Client
	logger     core.ILogger
	metrics    *telemetry.MetricsHolder
	now        func() time.Time
}

// NewBinanceSpotExchange creates a new Binance Spot exchange instance
func NewBinanceSpotExchange(cfg config.MarketConfig, logger core.ILogger) (*BinanceSpotExchange, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSpotURL
	}

	e := &BinanceSpotExchange{
		apiKey:     cfg.APIKey.Reveal(),
		secretKey:  cfg.SecretKey.Reveal(),
		recvWindow: cfg.RecvWindow,
		logger:     logger.WithField("exchange", "binance_spot"),
		metrics:    telemetry.GetGlobalMetrics(),
		now:        time.Now,
	}

	client, err := pkghttp.NewClient(pkghttp.Options{
		BaseURL:   baseURL,
		Timeout:   cfg.Timeout,
		Proxy:     cfg.Proxy,
		RateLimit: cfg.RateLimit,
		Signer:    e,
	})
	if err != nil {
		return nil, err
	}
	e.client = client

	return e, nil
}

func (e *BinanceSpotExchange) GetName() string {
	return "binance_spot"
}

// SignRequest adds authentication headers and signature to the request
func (e *BinanceSpotExchange) SignRequest(req *http.Request) error {
	req.Header.Set("X-MBX-APIKEY", e.apiKey)

	q := req.URL.Query()
	if q.Get("recvWindow") == "" && e.recvWindow > 0 {
		q.Set("recvWindow", strconv.FormatInt(e.recvWindow, 10))
	}
	if q.Get("timestamp") == "" {
		q.Set("timestamp", strconv.FormatInt(e.now().UnixMilli(), 10))
	}

	// signature must be the last parameter of the signed query
	payload := q.Encode()
	req.URL.RawQuery = payload + "&signature=" + Sign(e.secretKey, payload)

	return nil
}

// Sign returns the hex encoded HMAC-SHA256 of payload
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *BinanceSpotExchange) observe(ctx context.Context, op string, start time.Time) {
	e.metrics.RecordExchangeLatency(ctx, op, float64(time.Since(start).Microseconds())/1000)
}

func endpoint(name string) string {
	return fmt.Sprintf("%s%s", apiPrefix, name)
}
