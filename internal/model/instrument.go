package model

// Instrument identifies one tracked asset and the names each provider knows
// it by.
type Instrument struct {
	ID         string // canonical identifier, e.g. "bitcoin"
	Symbol     string // display and news symbol, e.g. "BTC"
	BookSymbol string // order-book product symbol, e.g. "BTC" for product BTC-USD
	HistoryID  string // history provider id, e.g. "bitcoin"
}
