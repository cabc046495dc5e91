package calculator

import "cryptopulse/internal/model"

// DefaultSMAWindow is the moving average window used by the hourly analysis.
const DefaultSMAWindow = 20

// SMASeries computes the trailing simple moving average for every point of
// the series. Element i stays absent until i spans a full window.
func SMASeries(series []model.PricePoint, window int) []model.OptFloat {
	out := make([]model.OptFloat, len(series))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(series); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += series[j].Price
		}
		out[i] = model.Opt(sum / float64(window))
	}
	return out
}

// SMA returns the latest moving average value, absent when the series is
// shorter than the window.
func SMA(series []model.PricePoint, window int) model.OptFloat {
	s := SMASeries(series, window)
	if len(s) == 0 {
		return model.OptFloat{}
	}
	return s[len(s)-1]
}
