package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mewroo/marketx/pkg/utils"
)

const (
	sectorIndustriesPath = "/v1/sectors/%s/industries"
	topCompaniesPath     = "/v1/industries/%s/top-companies"
	tickerInfoPath       = "/v1/tickers/%s/info"
	tickerHistoryPath    = "/v1/tickers/%s/history"
	healthPath           = "/v1/health"
)

// Client is a wrapper around an http.Client for the market-data provider that
// implements a circuit-breaker and token-bucket. Responses are best-effort
// tabular/dict payloads with no fixed schema guarantee.
type Client struct {
	endpoints []string
	client    *http.Client

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration

	// multi-symbol download fan-out
	pool pond.Pool

	// per-run scalar info cache; the same ticker is often probed by several jobs
	infoCache *xsync.Map[string, map[string]any]
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	DownloadWorkers int
	HTTPClient      *http.Client
}

// NewWithOpts creates a new Client with the given options.
func NewWithOpts(o Opts) *Client {
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}
	if o.DownloadWorkers <= 0 {
		o.DownloadWorkers = 8
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &Client{
		endpoints:        utils.Dedup(trimSlashes(o.Endpoints)),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
		pool:             pond.NewPool(o.DownloadWorkers),
		infoCache:        xsync.NewMap[string, map[string]any](),
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// NewFromEnv creates a Client from PROVIDER_* environment variables.
func NewFromEnv() *Client {
	timeout := time.Duration(utils.EnvInt("PROVIDER_TIMEOUT_SECONDS", 30)) * time.Second
	return NewWithOpts(Opts{
		Endpoints:       strings.Split(utils.Env("PROVIDER_ADDR", "http://localhost:8480"), ","),
		Timeout:         timeout,
		RPS:             utils.EnvInt("PROVIDER_RPS", 10),
		DownloadWorkers: utils.EnvInt("PROVIDER_DOWNLOAD_WORKERS", 8),
	})
}

func trimSlashes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		out = append(out, strings.TrimRight(strings.TrimSpace(e), "/"))
	}
	return out
}

// refill refills the token-bucket with new tokens if necessary.
func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

// acquire acquires a token from the token-bucket, blocking if necessary.
func (c *Client) acquire() {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return
		}
		time.Sleep(c.refillEvery / 2)
	}
}

// isOpen returns true if the endpoint is in the OPEN state.
func (c *Client) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

// noteFailure marks an endpoint as failed and opens the circuit-breaker if the
// failure count exceeds the threshold.
func (c *Client) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

// getJSON issues a GET against a configured endpoint and decodes the JSON
// response into out. It retries across endpoints on circuit-breaker or
// server-side failures; 4xx responses are returned without failover since
// they indicate an unknown entity rather than a bad endpoint.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if len(c.endpoints) == 0 {
		return fmt.Errorf("no endpoints configured")
	}

	target := path
	if len(query) > 0 {
		target = path + "?" + query.Encode()
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i%len(c.endpoints)]
		if c.isOpen(ep) {
			continue
		}

		c.acquire()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, ep+target, nil)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		// From here on, always drain+close the body before continuing/returning.
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			c.noteFailure(ep)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}
		if resp.StatusCode >= 300 {
			_ = utils.DrainAndClose(resp.Body)
			return fmt.Errorf("http %d for %s", resp.StatusCode, path)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				_ = utils.DrainAndClose(resp.Body)
				lastErr = fmt.Errorf("decode %s: %w", path, err)
				continue
			}
		}

		if cerr := utils.DrainAndClose(resp.Body); cerr != nil {
			return cerr
		}
		return nil
	}

	if lastErr == nil {
		// Every endpoint had an open breaker; nothing was attempted.
		return fmt.Errorf("no available endpoints for %s", path)
	}
	return lastErr
}

// Ping probes provider availability. Used by the serving layer's startup
// dependency check.
func (c *Client) Ping(ctx context.Context) error {
	return c.getJSON(ctx, healthPath, nil, nil)
}

// SectorIndustries returns the sector's industry catalog table.
func (c *Client) SectorIndustries(ctx context.Context, sectorKey string) (*Table, error) {
	var table Table
	if err := c.getJSON(ctx, fmt.Sprintf(sectorIndustriesPath, url.PathEscape(sectorKey)), nil, &table); err != nil {
		return nil, fmt.Errorf("sector %s industries: %w", sectorKey, err)
	}
	return &table, nil
}

// IndustryTopCompanies returns the industry's top-constituent table.
func (c *Client) IndustryTopCompanies(ctx context.Context, industryKey string) (*Table, error) {
	var table Table
	if err := c.getJSON(ctx, fmt.Sprintf(topCompaniesPath, url.PathEscape(industryKey)), nil, &table); err != nil {
		return nil, fmt.Errorf("industry %s top companies: %w", industryKey, err)
	}
	return &table, nil
}

// TickerInfo returns the ticker's scalar info dict (market cap, currency, ...).
// Responses are cached for the lifetime of the client.
func (c *Client) TickerInfo(ctx context.Context, ticker string) (map[string]any, error) {
	if cached, ok := c.infoCache.Load(ticker); ok {
		return cached, nil
	}

	var info map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf(tickerInfoPath, url.PathEscape(ticker)), nil, &info); err != nil {
		return nil, fmt.Errorf("ticker %s info: %w", ticker, err)
	}

	c.infoCache.Store(ticker, info)
	return info, nil
}

// DownloadHistory fetches OHLCV history for a symbol set starting at the given
// date with the given bar interval. Symbols are fetched concurrently by an
// internal worker pool; the call itself is synchronous and best-effort.
// Returns one table per symbol that succeeded and one error per symbol that
// failed; a symbol never appears in both.
func (c *Client) DownloadHistory(ctx context.Context, symbols []string, start time.Time, interval string) (map[string]*Table, map[string]error) {
	tables := make(map[string]*Table, len(symbols))
	errs := make(map[string]error)

	var mu sync.Mutex
	group := c.pool.NewGroup()

	for _, symbol := range utils.Dedup(symbols) {
		group.Submit(func() {
			query := url.Values{}
			query.Set("start", start.UTC().Format("2006-01-02"))
			query.Set("interval", interval)

			var table Table
			err := c.getJSON(ctx, fmt.Sprintf(tickerHistoryPath, url.PathEscape(symbol)), query, &table)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[symbol] = err
				return
			}
			tables[symbol] = &table
		})
	}

	_ = group.Wait()
	return tables, errs
}

// Close releases the internal worker pool.
func (c *Client) Close() {
	c.pool.StopAndWait()
}
