package binancespot

import (
	"encoding/json"
	"errors"
	"fmt"

	apperrors "trendgrid/pkg/errors"
	pkghttp "trendgrid/pkg/http"
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

func parseError(body []byte) error {
	var errResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Code == 0 {
		return nil
	}
	return apperrors.NewExchangeRejected(errResp.Code, errResp.Msg, errorKinds)
}

// wrapError turns HTTP status errors carrying a Binance error payload into ExchangeRejectedError
func (e *BinanceSpotExchange) wrapError(op string, err error) error {
	var apiErr *pkghttp.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rejected := parseError(apiErr.Body); rejected != nil {
		return fmt.Errorf("%s: %w", op, rejected)
	}
	if apiErr.StatusCode >= 500 {
		return apperrors.Network(op, apiErr)
	}
	return apperrors.Decode(op, apiErr)
}
