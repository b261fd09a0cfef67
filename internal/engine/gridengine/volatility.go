package gridengine

import (
	"errors"
	"math"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"
)

const (
	// MinRatio keeps buy below sell after repricing when the candles show no movement
	MinRatio = 0.001
	// MaxRatio is the largest ratio stored after clamping below 1
	MaxRatio = 0.99
)

// CalcVolatility returns the mean of |high - open| / low over the candles,
// clamped into [MinRatio, MaxRatio].
func CalcVolatility(candles []core.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, apperrors.Decode("volatility", errors.New("no candles"))
	}

	var sum float64
	for i, c := range candles {
		if c.Low == 0 {
			return 0, apperrors.Invariant("candle %d has zero low", i)
		}
		sum += math.Abs(c.High-c.Open) / c.Low
	}

	return clampRatio(sum / float64(len(candles))), nil
}

func clampRatio(r float64) float64 {
	switch {
	case math.IsNaN(r) || r < MinRatio:
		return MinRatio
	case r > MaxRatio:
		return MaxRatio
	default:
		return r
	}
}
