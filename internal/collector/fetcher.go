package collector

import (
	"context"

	"cryptopulse/internal/model"
)

// PriceSource is one spot-price provider. The client tries its sources in
// order until one succeeds.
type PriceSource interface {
	FetchPrice(ctx context.Context, inst model.Instrument) (float64, error)
	Name() string
}
