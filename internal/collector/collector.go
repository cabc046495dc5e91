package collector

import (
	"context"
	"log"

	"cryptopulse/internal/model"
)

// Client is the market data entry point for the analysis pipeline. Its
// methods never return errors: upstream failures are logged and expressed as
// absent values.
type Client struct {
	Sources  []PriceSource
	Coinbase *CoinbaseSource
	Gecko    *CoinGeckoSource
}

// NewClient wires the default provider chain: Coinbase first for spot
// prices with CoinGecko as fallback, Coinbase for the order book, CoinGecko
// for history.
func NewClient(coinbase *CoinbaseSource, gecko *CoinGeckoSource) *Client {
	return &Client{
		Sources:  []PriceSource{coinbase, gecko},
		Coinbase: coinbase,
		Gecko:    gecko,
	}
}

// Price returns the current spot price, trying each source in order.
func (c *Client) Price(ctx context.Context, inst model.Instrument) model.OptFloat {
	for _, src := range c.Sources {
		price, err := src.FetchPrice(ctx, inst)
		if err != nil {
			log.Printf("[WARN] price source %s failed for %s: %v", src.Name(), inst.ID, err)
			continue
		}
		return model.Opt(price)
	}
	log.Printf("[ERROR] all price sources failed for %s", inst.ID)
	return model.OptFloat{}
}

// OrderBook returns the top-of-book snapshot, or the absent zero snapshot on
// any failure.
func (c *Client) OrderBook(ctx context.Context, inst model.Instrument) model.OrderBook {
	book, err := c.Coinbase.FetchBook(ctx, inst)
	if err != nil {
		log.Printf("[WARN] order book fetch failed for %s: %v", inst.ID, err)
		return model.OrderBook{}
	}
	return book
}

// History returns the price series of the past days, empty on failure.
func (c *Client) History(ctx context.Context, inst model.Instrument, days int) []model.PricePoint {
	points, err := c.Gecko.FetchHistory(ctx, inst, days)
	if err != nil {
		log.Printf("[WARN] history fetch failed for %s: %v", inst.ID, err)
		return nil
	}
	return points
}
