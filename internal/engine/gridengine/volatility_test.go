package gridengine

import (
	"errors"
	"testing"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcVolatility(t *testing.T) {
	t.Run("mean of high-open over low", func(t *testing.T) {
		vol, err := CalcVolatility([]core.Candle{
			{Open: 10, High: 11, Low: 9},
			{Open: 20, High: 19, Low: 18},
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.0833, vol, 1e-4)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := CalcVolatility(nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDecode))
	})

	t.Run("zero low", func(t *testing.T) {
		_, err := CalcVolatility([]core.Candle{{Open: 1, High: 2, Low: 0}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvariantViolation))
	})

	t.Run("flat candles keep a minimum ratio", func(t *testing.T) {
		vol, err := CalcVolatility([]core.Candle{{Open: 100, High: 100, Low: 100}, {Open: 50, High: 50, Low: 49}})
		require.NoError(t, err)
		assert.Equal(t, MinRatio, vol)
	})

	t.Run("clamped below one", func(t *testing.T) {
		vol, err := CalcVolatility([]core.Candle{{Open: 1, High: 50, Low: 1}})
		require.NoError(t, err)
		assert.Equal(t, MaxRatio, vol)
	})
}
