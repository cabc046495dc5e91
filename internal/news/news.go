package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cryptopulse/internal/model"
)

const (
	defaultNewsAPIURL = "https://newsapi.org"
	defaultGNewsURL   = "https://gnews.io"
)

// provider is one headline source. Providers are tried in order until one
// returns results.
type provider interface {
	fetch(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error)
	name() string
}

// Client aggregates crypto headlines from the configured providers. Its
// Headlines method never returns an error: provider failures are logged and
// treated as no news.
type Client struct {
	providers []provider
}

// NewClient builds the provider chain from the configured API keys. An
// unset key simply leaves its provider out; with no keys at all no network
// calls are ever made.
func NewClient(newsAPIKey, gnewsKey, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	httpClient := &http.Client{
		Timeout:   8 * time.Second,
		Transport: transport,
	}

	c := &Client{}
	if newsAPIKey != "" {
		c.providers = append(c.providers, &newsAPIProvider{apiKey: newsAPIKey, baseURL: defaultNewsAPIURL, client: httpClient})
	}
	if gnewsKey != "" {
		c.providers = append(c.providers, &gnewsProvider{apiKey: gnewsKey, baseURL: defaultGNewsURL, client: httpClient})
	}
	return c
}

// Headlines returns up to limit recent headlines for the symbol. An empty
// result means no relevant news, including the no-providers case.
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) []model.NewsItem {
	if limit <= 0 {
		return nil
	}
	for _, p := range c.providers {
		items, err := p.fetch(ctx, symbol, limit)
		if err != nil {
			log.Printf("[WARN] news provider %s failed for %s: %v", p.name(), symbol, err)
			continue
		}
		if len(items) == 0 {
			continue
		}
		if len(items) > limit {
			items = items[:limit]
		}
		return items
	}
	return nil
}

// articleList is the response shape shared by both providers.
type articleList struct {
	Articles []struct {
		Title  string `json:"title"`
		URL    string `json:"url"`
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (a *articleList) items() []model.NewsItem {
	out := make([]model.NewsItem, 0, len(a.Articles))
	for _, art := range a.Articles {
		out = append(out, model.NewsItem{Title: art.Title, Source: art.Source.Name, URL: art.URL})
	}
	return out
}

// newsAPIProvider queries the NewsAPI everything endpoint with a broad
// crypto query.
type newsAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func (p *newsAPIProvider) name() string { return "newsapi" }

func (p *newsAPIProvider) fetch(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s OR crypto OR cryptocurrency OR blockchain", symbol))
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(limit))
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", p.apiKey)
	endpoint := fmt.Sprintf("%s/v2/everything?%s", p.baseURL, q.Encode())

	body, err := getJSON(ctx, p.client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	var result articleList
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("newsapi decode: %w", err)
	}
	return result.items(), nil
}

// gnewsProvider queries the GNews search endpoint with the bare symbol.
type gnewsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func (p *gnewsProvider) name() string { return "gnews" }

func (p *gnewsProvider) fetch(ctx context.Context, symbol string, limit int) ([]model.NewsItem, error) {
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("lang", "en")
	q.Set("max", strconv.Itoa(limit))
	q.Set("token", p.apiKey)
	endpoint := fmt.Sprintf("%s/api/v4/search?%s", p.baseURL, q.Encode())

	body, err := getJSON(ctx, p.client, endpoint)
	if err != nil {
		return nil, fmt.Errorf("gnews: %w", err)
	}
	var result articleList
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("gnews decode: %w", err)
	}
	return result.items(), nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
