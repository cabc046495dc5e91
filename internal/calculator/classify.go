package calculator

import "cryptopulse/internal/model"

// RSI classification thresholds.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// ClassifyTrend compares the current price against its moving average.
func ClassifyTrend(price, sma model.OptFloat) model.Trend {
	if !price.Valid || !sma.Valid {
		return model.TrendUnknown
	}
	switch {
	case price.Value > sma.Value:
		return model.TrendBullish
	case price.Value < sma.Value:
		return model.TrendBearish
	default:
		return model.TrendNeutral
	}
}

// ClassifyRSI maps an RSI reading to its market state.
func ClassifyRSI(rsi model.OptFloat) model.RSIState {
	if !rsi.Valid {
		return model.RSIUnknown
	}
	switch {
	case rsi.Value < rsiOversold:
		return model.RSIOversold
	case rsi.Value > rsiOverbought:
		return model.RSIOverbought
	default:
		return model.RSINeutral
	}
}
