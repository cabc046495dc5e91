package model

import "time"

// OptFloat is a float64 that may be absent. The zero value is absent.
type OptFloat struct {
	Value float64
	Valid bool
}

// Opt wraps a present value.
func Opt(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// PricePoint is a single sample of a price series.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// OrderBook is a top-of-book snapshot. The zero value (all zeros, Valid
// false) is the defined absent snapshot used when the book cannot be
// fetched.
type OrderBook struct {
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	Valid    bool
}
