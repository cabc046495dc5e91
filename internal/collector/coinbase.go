package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cryptopulse/internal/model"
)

const defaultCoinbaseURL = "https://api.exchange.coinbase.com"

// CoinbaseSource fetches spot prices and order books from the Coinbase
// Exchange public API.
type CoinbaseSource struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinbaseSource creates a Coinbase source with optional proxy support.
// An empty baseURL selects the production endpoint.
func NewCoinbaseSource(baseURL, proxyURL string) *CoinbaseSource {
	if baseURL == "" {
		baseURL = defaultCoinbaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinbaseSource{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   8 * time.Second,
			Transport: transport,
		},
	}
}

func (s *CoinbaseSource) Name() string { return "coinbase" }

// FetchPrice returns the last trade price of the instrument's USD product.
func (s *CoinbaseSource) FetchPrice(ctx context.Context, inst model.Instrument) (float64, error) {
	endpoint := fmt.Sprintf("%s/products/%s-USD/ticker", s.BaseURL, inst.BookSymbol)
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return 0, fmt.Errorf("coinbase decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase parse price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// FetchBook returns the top-of-book snapshot of the instrument's USD
// product.
func (s *CoinbaseSource) FetchBook(ctx context.Context, inst model.Instrument) (model.OrderBook, error) {
	endpoint := fmt.Sprintf("%s/products/%s-USD/book?level=1", s.BaseURL, inst.BookSymbol)
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return model.OrderBook{}, err
	}
	// Book entries are [price, size, num_orders] with price and size as strings.
	var book struct {
		Bids [][]interface{} `json:"bids"`
		Asks [][]interface{} `json:"asks"`
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return model.OrderBook{}, fmt.Errorf("coinbase decode book: %w", err)
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 || len(book.Bids[0]) < 2 || len(book.Asks[0]) < 2 {
		return model.OrderBook{}, fmt.Errorf("coinbase book: empty sides")
	}
	bidPrice, ok1 := asFloat(book.Bids[0][0])
	bidQty, ok2 := asFloat(book.Bids[0][1])
	askPrice, ok3 := asFloat(book.Asks[0][0])
	askQty, ok4 := asFloat(book.Asks[0][1])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return model.OrderBook{}, fmt.Errorf("coinbase book: malformed entries")
	}
	return model.OrderBook{
		BidPrice: bidPrice,
		BidQty:   bidQty,
		AskPrice: askPrice,
		AskQty:   askQty,
		Valid:    true,
	}, nil
}

func (s *CoinbaseSource) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "cryptopulse/1.0")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinbase fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinbase read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coinbase: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// asFloat converts a JSON book field that may arrive as string or number.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
