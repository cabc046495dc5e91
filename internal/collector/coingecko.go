package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"cryptopulse/internal/model"
)

const defaultCoinGeckoURL = "https://api.coingecko.com"

// CoinGeckoSource fetches spot prices and hourly history from the CoinGecko
// public API. It serves as the fallback price source and the only history
// source.
type CoinGeckoSource struct {
	BaseURL       string
	Client        *http.Client
	HistoryClient *http.Client
}

// NewCoinGeckoSource creates a CoinGecko source with optional proxy support.
// History calls get a slightly larger timeout than price calls.
func NewCoinGeckoSource(baseURL, proxyURL string) *CoinGeckoSource {
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinGeckoSource{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   8 * time.Second,
			Transport: transport,
		},
		HistoryClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

func (s *CoinGeckoSource) Name() string { return "coingecko" }

// FetchPrice returns the USD simple price for the instrument.
func (s *CoinGeckoSource) FetchPrice(ctx context.Context, inst model.Instrument) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd",
		s.BaseURL, url.QueryEscape(inst.HistoryID))
	body, err := s.get(ctx, s.Client, endpoint)
	if err != nil {
		return 0, err
	}
	var prices map[string]map[string]float64
	if err := json.Unmarshal(body, &prices); err != nil {
		return 0, fmt.Errorf("coingecko decode price: %w", err)
	}
	usd, ok := prices[inst.HistoryID]["usd"]
	if !ok {
		return 0, fmt.Errorf("coingecko: no usd price for %s", inst.HistoryID)
	}
	return usd, nil
}

// FetchHistory returns the USD price series of the past days in
// chronological order.
func (s *CoinGeckoSource) FetchHistory(ctx context.Context, inst model.Instrument, days int) ([]model.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/api/v3/coins/%s/market_chart?vs_currency=usd&days=%d",
		s.BaseURL, url.PathEscape(inst.HistoryID), days)
	body, err := s.get(ctx, s.HistoryClient, endpoint)
	if err != nil {
		return nil, err
	}
	var chart struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("coingecko decode history: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("coingecko: empty history for %s", inst.HistoryID)
	}
	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		points = append(points, model.PricePoint{
			Time:  time.UnixMilli(int64(p[0])),
			Price: p[1],
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

func (s *CoinGeckoSource) get(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
