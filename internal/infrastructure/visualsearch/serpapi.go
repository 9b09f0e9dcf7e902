// Package visualsearch finds market comparables for a product picture
// through the SerpAPI Google Lens engine.
package visualsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"LensInventory/internal/domain"
	"LensInventory/internal/infrastructure/retry"
	"LensInventory/internal/ports"
)

const (
	defaultEndpoint = "https://serpapi.com/search.json"
	maxMatches      = 5
	cacheSize       = 100
)

// Options configure the SerpAPI client.
type Options struct {
	Endpoint          string
	APIKey            string
	RequestsPerMinute int
	CacheTTL          time.Duration
	Timeout           time.Duration
	Retry             retry.Policy
	Logger            *slog.Logger
}

// Client queries Google Lens through SerpAPI.
type Client struct {
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
	retry    retry.Policy
	http     *http.Client
	logger   *slog.Logger

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	result  domain.VisualSearchResult
	expires time.Time
}

var _ ports.VisualSearcher = (*Client)(nil)

// NewClient builds a rate-limited client. A zero RequestsPerMinute disables
// throttling and a zero CacheTTL disables caching.
func NewClient(opts Options) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   opts.APIKey,
		limiter:  limiter,
		retry:    opts.Retry,
		http:     &http.Client{Timeout: timeout},
		logger:   opts.Logger,
		ttl:      opts.CacheTTL,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

type lensResponse struct {
	Error         string `json:"error"`
	VisualMatches []struct {
		Title  string          `json:"title"`
		Link   string          `json:"link"`
		Source string          `json:"source"`
		Price  json.RawMessage `json:"price"`
	} `json:"visual_matches"`
	KnowledgeGraph json.RawMessage `json:"knowledge_graph"`
}

// Search looks the picture up by its public URL. Google Lens cannot search raw
// bytes, so a query without a URL yields an empty result.
func (c *Client) Search(ctx context.Context, q domain.VisualQuery) (domain.VisualSearchResult, error) {
	if q.ImageURL == "" {
		c.debug("visual search skipped, no image url")
		return domain.VisualSearchResult{}, nil
	}
	if c.apiKey == "" {
		return domain.VisualSearchResult{}, fmt.Errorf("visual search: api key is not configured")
	}

	if res, ok := c.cached(q.ImageURL); ok {
		c.debug("visual search cache hit", "url", q.ImageURL)
		return res, nil
	}

	var resp lensResponse
	err := c.retry.Do(ctx, "visual search", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
		resp = lensResponse{}
		return c.get(ctx, q.ImageURL, &resp)
	})
	if err != nil {
		return domain.VisualSearchResult{}, err
	}
	if resp.Error != "" {
		return domain.VisualSearchResult{}, fmt.Errorf("visual search: %s", resp.Error)
	}

	result := toResult(resp)
	c.store(q.ImageURL, result)
	c.debug("visual search done", "url", q.ImageURL, "matches", len(result.VisualMatches))
	return result, nil
}

func (c *Client) get(ctx context.Context, imageURL string, v any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	query := u.Query()
	query.Set("engine", "google_lens")
	query.Set("url", imageURL)
	query.Set("api_key", c.apiKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("serpapi returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toResult(resp lensResponse) domain.VisualSearchResult {
	matches := make([]domain.VisualMatch, 0, maxMatches)
	for _, m := range resp.VisualMatches {
		if len(matches) == maxMatches {
			break
		}
		if m.Title == "" {
			continue
		}
		matches = append(matches, domain.VisualMatch{
			Title:  m.Title,
			Link:   m.Link,
			Source: m.Source,
			Price:  priceText(m.Price),
		})
	}
	return domain.VisualSearchResult{
		VisualMatches:  matches,
		KnowledgeGraph: knowledgeGraph(resp.KnowledgeGraph),
	}
}

// priceText accepts either a bare string or SerpAPI's {value, currency} object.
func priceText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

// knowledgeGraph accepts a single card or a list and keeps the first card.
func knowledgeGraph(raw json.RawMessage) domain.KnowledgeGraph {
	if len(raw) == 0 {
		return domain.KnowledgeGraph{}
	}
	var kg domain.KnowledgeGraph
	if err := json.Unmarshal(raw, &kg); err == nil {
		return kg
	}
	var list []domain.KnowledgeGraph
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return domain.KnowledgeGraph{}
}

func (c *Client) cached(key string) (domain.VisualSearchResult, bool) {
	if c.ttl <= 0 {
		return domain.VisualSearchResult{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || c.now().After(entry.expires) {
		delete(c.cache, key)
		return domain.VisualSearchResult{}, false
	}
	return entry.result, true
}

func (c *Client) store(key string, res domain.VisualSearchResult) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.cache) >= cacheSize {
		for k, e := range c.cache {
			if now.After(e.expires) {
				delete(c.cache, k)
			}
		}
	}
	if len(c.cache) >= cacheSize {
		// evict an arbitrary entry
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[key] = cacheEntry{result: res, expires: now.Add(c.ttl)}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
