// Package prices fetches EUR spot prices for precious metals from GOLD.DE
// and keeps them in a short-lived cache.
package prices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	SourceLive     = "GOLD.DE"
	SourceStale    = "GOLD.DE (stale)"
	SourceFallback = "fallback"

	cacheKey = "latest"
)

// Price is the spot price of one metal.
type Price struct {
	Metal       models.Metal `json:"metal_type"`
	PerGramEUR  float64      `json:"spot_per_gram_eur"`
	PerOunceEUR float64      `json:"spot_per_oz_eur"`
}

// Quote is a consistent set of prices for all metals.
type Quote struct {
	Prices    map[models.Metal]Price `json:"prices"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
}

// PerGram returns the EUR price per gram of m, or 0 if m is unknown.
func (q *Quote) PerGram(m models.Metal) float64 {
	return q.Prices[m].PerGramEUR
}

// fallbackPerGram is used when the source has never answered.
var fallbackPerGram = map[models.Metal]float64{
	models.MetalGold:      118.50,
	models.MetalSilver:    1.96,
	models.MetalPlatinum:  56.15,
	models.MetalPalladium: 44.20,
}

// FallbackQuote returns the static prices.
func FallbackQuote(now time.Time) *Quote {
	q := &Quote{Prices: make(map[models.Metal]Price, len(fallbackPerGram)), Source: SourceFallback, Timestamp: now}
	for m, perGram := range fallbackPerGram {
		q.Prices[m] = newPrice(m, perGram)
	}
	return q
}

func newPrice(m models.Metal, perGram float64) Price {
	return Price{
		Metal:       m,
		PerGramEUR:  perGram,
		PerOunceEUR: perGram * models.GramsPerTroyOunce,
	}
}

// publicResponse is the subset of public.json we read. Values are EUR per
// troy ounce.
type publicResponse struct {
	Gold      *float64 `json:"gold_eur"`
	Silver    *float64 `json:"silber_eur"`
	Platinum  *float64 `json:"platin_eur"`
	Palladium *float64 `json:"palladium_eur"`
}

func (r *publicResponse) perOunce() map[models.Metal]*float64 {
	return map[models.Metal]*float64{
		models.MetalGold:      r.Gold,
		models.MetalSilver:    r.Silver,
		models.MetalPlatinum:  r.Platinum,
		models.MetalPalladium: r.Palladium,
	}
}

var errNoPrices = errors.New("price source returned no prices")

// Client serves quotes from cache, refreshing from the source when the cache
// expired. Concurrent refreshes are merged into one request.
type Client struct {
	http     *resty.Client
	url      string
	cache    *expirable.LRU[string, *Quote]
	group    singleflight.Group
	logger   logging.Logger
	attempts uint64
	backoff  time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	lastGood *Quote
}

func NewClient(url string, timeout, ttl time.Duration, logger logging.Logger) *Client {
	return &Client{
		http:     resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		url:      url,
		cache:    expirable.NewLRU[string, *Quote](1, nil, ttl),
		logger:   logger.With("module", "prices"),
		attempts: 3,
		backoff:  200 * time.Millisecond,
		now:      time.Now,
	}
}

// Source describes where live prices come from.
func (c *Client) Source() string {
	return SourceLive + " " + c.url
}

// Prices returns the current quote. It only fails when ctx is done; source
// outages degrade to the last good quote and then to static prices.
func (c *Client) Prices(ctx context.Context) (*Quote, error) {
	if q, ok := c.cache.Get(cacheKey); ok {
		return q, nil
	}

	v, err, _ := c.group.Do(cacheKey, func() (any, error) {
		if q, ok := c.cache.Get(cacheKey); ok {
			return q, nil
		}
		q, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Add(cacheKey, q)
		c.mu.Lock()
		c.lastGood = q
		c.mu.Unlock()
		return q, nil
	})
	if err == nil {
		return v.(*Quote), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	c.logger.Warn(ctx, "price fetch failed", "error", err)

	c.mu.RLock()
	last := c.lastGood
	c.mu.RUnlock()
	if last != nil {
		stale := *last
		stale.Source = SourceStale
		return &stale, nil
	}
	return FallbackQuote(c.now()), nil
}

func (c *Client) fetch(ctx context.Context) (*Quote, error) {
	backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.backoff))

	var body publicResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body = publicResponse{}
		resp, err := c.http.R().SetContext(ctx).ForceContentType("application/json").SetResult(&body).Get(c.url)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("price source status %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return fmt.Errorf("price source status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.toQuote(&body)
}

func (c *Client) toQuote(body *publicResponse) (*Quote, error) {
	q := &Quote{Prices: make(map[models.Metal]Price, len(models.Metals)), Source: SourceLive, Timestamp: c.now()}
	live := 0
	for m, perOz := range body.perOunce() {
		if perOz == nil || *perOz <= 0 {
			// partial answers keep the static price for missing metals
			q.Prices[m] = newPrice(m, fallbackPerGram[m])
			continue
		}
		q.Prices[m] = newPrice(m, *perOz/models.GramsPerTroyOunce)
		live++
	}
	if live == 0 {
		return nil, errNoPrices
	}
	return q, nil
}
