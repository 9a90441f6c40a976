package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"recapbot/internal/domain"
)

const browserTimeout = 45 * time.Second

// extractProductsJS pulls product tiles out of a catalog search results
// page. Selectors target the common grid layout: a tile with a title, a
// price tag, and a link wrapping the tile.
const extractProductsJS = `
(function(max) {
	var tiles = document.querySelectorAll('[data-testid="product-tile"], .product-tile');
	var out = [];
	for (var i = 0; i < tiles.length && out.length < max; i++) {
		var t = tiles[i];
		var nameEl = t.querySelector('[data-testid="product-title"], .product-name, h3');
		var priceEl = t.querySelector('[data-testid="price"], .selling-price-list, .price');
		var linkEl = t.querySelector('a[href]');
		if (!nameEl) continue;
		var price = null;
		if (priceEl) {
			var m = (priceEl.innerText || '').match(/[\d]+\.?[\d]*/);
			if (m) price = parseFloat(m[0]);
		}
		out.push({
			name: nameEl.innerText.trim(),
			price: price,
			url: linkEl ? linkEl.href : ''
		});
	}
	return out;
})(%d)
`

// Browser scrapes a catalog's search results page with headless Chrome.
// Used for catalogs that expose no search API.
type Browser struct {
	searchURL  string // must contain one %s placeholder for the query
	profileDir string
	maxResults int
	logger     *slog.Logger
}

type BrowserConfig struct {
	SearchURL  string
	ProfileDir string
	MaxResults int
	Logger     *slog.Logger
}

func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".recapbot", "chrome-profiles", "catalog")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &Browser{
		searchURL:  cfg.SearchURL,
		profileDir: cfg.ProfileDir,
		maxResults: cfg.MaxResults,
		logger:     cfg.Logger,
	}
}

// Lookup renders the search page and extracts product tiles. Like the API
// adapter it never returns an error; scraping failures mean no match.
func (b *Browser) Lookup(ctx context.Context, item string) ([]domain.Product, error) {
	products, err := b.scrape(ctx, item)
	if err != nil {
		b.logger.Warn("catalog scrape failed", "item", item, "err", err)
		return nil, nil
	}
	return products, nil
}

type scrapedProduct struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	URL   string   `json:"url"`
}

func (b *Browser) scrape(ctx context.Context, item string) ([]domain.Product, error) {
	if err := os.MkdirAll(b.profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.profileDir),
		chromedp.Headless,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, browserTimeout)
	defer timeoutCancel()

	pageURL := fmt.Sprintf(b.searchURL, url.QueryEscape(item))

	var scraped []scrapedProduct
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(fmt.Sprintf(extractProductsJS, b.maxResults), &scraped),
	)
	if err != nil {
		return nil, fmt.Errorf("render search page: %w", err)
	}

	out := make([]domain.Product, 0, len(scraped))
	for _, p := range scraped {
		if p.Name == "" {
			continue
		}
		out = append(out, domain.Product{Name: p.Name, Price: p.Price, URL: p.URL})
	}
	return out, nil
}
