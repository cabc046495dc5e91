package calculator

import (
	"github.com/shopspring/decimal"

	"cryptopulse/internal/model"
)

// Levels derives suggested buy and sell levels from the observed range: 2%
// above the minimum and 2% below the maximum, rounded to cents. Both are
// absent on an empty series.
func Levels(series []model.PricePoint) (buy, sell model.OptFloat) {
	if len(series) == 0 {
		return model.OptFloat{}, model.OptFloat{}
	}
	low, high := series[0].Price, series[0].Price
	for _, p := range series[1:] {
		if p.Price < low {
			low = p.Price
		}
		if p.Price > high {
			high = p.Price
		}
	}
	return model.Opt(roundCents(low * 1.02)), model.Opt(roundCents(high * 0.98))
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
