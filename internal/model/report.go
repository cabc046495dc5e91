package model

import "time"

// Trend classifies the current price relative to its moving average.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
	TrendUnknown Trend = "N/A"
)

// RSIState classifies an RSI reading.
type RSIState string

const (
	RSIOversold   RSIState = "Oversold"
	RSIOverbought RSIState = "Overbought"
	RSINeutral    RSIState = "Neutral"
	RSIUnknown    RSIState = "N/A"
)

// NewsItem is one headline returned by a news provider.
type NewsItem struct {
	Title  string
	Source string
	URL    string
}

// Report is the full analysis snapshot for one instrument at one tick.
type Report struct {
	Instrument  Instrument
	GeneratedAt time.Time
	Price       OptFloat
	Book        OrderBook
	SMA         OptFloat
	RSI         OptFloat
	BuyLevel    OptFloat
	SellLevel   OptFloat
	Trend       Trend
	RSIState    RSIState
	Chart       []byte // PNG, nil when rendering was not possible
	News        []NewsItem
}
