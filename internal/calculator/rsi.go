package calculator

import "cryptopulse/internal/model"

// DefaultRSIWindow is the RSI window used by the hourly analysis.
const DefaultRSIWindow = 14

// RSISeries computes a simplified RSI for every point of the series, using
// plain rolling means of gains and losses over the last `window` price
// changes rather than Wilder smoothing. Element i stays absent until
// window+1 points are available up to i. A window with gains and no losses
// yields exactly 100; a completely flat window leaves the value absent
// because 0/0 has no meaningful reading.
func RSISeries(series []model.PricePoint, window int) []model.OptFloat {
	out := make([]model.OptFloat, len(series))
	if window <= 0 {
		return out
	}
	for i := window; i < len(series); i++ {
		var gain, loss float64
		for j := i - window + 1; j <= i; j++ {
			change := series[j].Price - series[j-1].Price
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		meanGain := gain / float64(window)
		meanLoss := loss / float64(window)
		switch {
		case meanGain == 0 && meanLoss == 0:
			// flat window, undefined
		case meanLoss == 0:
			out[i] = model.Opt(100.0)
		default:
			rs := meanGain / meanLoss
			out[i] = model.Opt(100.0 - 100.0/(1.0+rs))
		}
	}
	return out
}

// RSI returns the latest RSI value, absent when the series is too short or
// the last window was flat.
func RSI(series []model.PricePoint, window int) model.OptFloat {
	s := RSISeries(series, window)
	if len(s) == 0 {
		return model.OptFloat{}
	}
	return s[len(s)-1]
}
