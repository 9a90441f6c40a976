// Package enrich provides Enricher adapters that match free-text list items
// to catalog products: a JSON search API client and a headless-browser
// scraper for catalogs without an API.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recapbot/internal/domain"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxResults  = 3
)

// API queries a product catalog search endpoint. Lookup never returns an
// error: failures are logged and reported as no match.
type API struct {
	apiBase    string
	maxResults int
	client     *http.Client
	logger     *slog.Logger
}

type APIConfig struct {
	APIBase    string
	MaxResults int
	Logger     *slog.Logger
}

func NewAPI(cfg APIConfig) *API {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &API{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		maxResults: cfg.MaxResults,
		client:     &http.Client{Timeout: defaultHTTPTimeout},
		logger:     cfg.Logger,
	}
}

type searchResponse struct {
	Products []struct {
		Name  string   `json:"name"`
		Price *float64 `json:"price"`
		URL   string   `json:"url"`
	} `json:"products"`
}

func (a *API) Lookup(ctx context.Context, item string) ([]domain.Product, error) {
	products, err := a.search(ctx, item)
	if err != nil {
		a.logger.Warn("catalog search failed", "item", item, "err", err)
		return nil, nil
	}
	return products, nil
}

func (a *API) search(ctx context.Context, item string) ([]domain.Product, error) {
	endpoint := a.apiBase + "/search?q=" + url.QueryEscape(item)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]domain.Product, 0, len(sr.Products))
	for _, p := range sr.Products {
		if p.Name == "" {
			continue
		}
		out = append(out, domain.Product{Name: p.Name, Price: p.Price, URL: p.URL})
		if len(out) >= a.maxResults {
			break
		}
	}
	return out, nil
}

// Disabled is the Enricher used when enrichment is turned off: every item
// resolves to no products.
type Disabled struct{}

func NewDisabled() *Disabled { return &Disabled{} }

func (d *Disabled) Lookup(ctx context.Context, item string) ([]domain.Product, error) {
	return nil, nil
}
