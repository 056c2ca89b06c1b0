// Package recall queries the NHTSA recall campaign API for open recall
// actions by vehicle make, model, and model year.
package recall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aigentic/fleetassist/types"
)

// DefaultBaseURL is the public NHTSA recalls endpoint.
const DefaultBaseURL = "https://api.nhtsa.gov"

// Campaign is one recall campaign returned by the upstream API.
type Campaign struct {
	Manufacturer       string `json:"Manufacturer"`
	CampaignNumber     string `json:"NHTSACampaignNumber"`
	Component          string `json:"Component"`
	Summary            string `json:"Summary"`
	Consequence        string `json:"Consequence"`
	Remedy             string `json:"Remedy"`
	ReportReceivedDate string `json:"ReportReceivedDate"`
	ModelYear          string `json:"ModelYear"`
	Make               string `json:"Make"`
	Model              string `json:"Model"`
	ParkIt             bool   `json:"ParkIt"`
	ParkOutside        bool   `json:"ParkOutSide"`
}

// Report is the recall lookup result for one make/model/year.
type Report struct {
	Count   int        `json:"Count"`
	Results []Campaign `json:"results"`
}

// Cache is the subset of the cache manager the client needs. A nil Cache
// disables caching.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// MetricsRecorder receives cache hit/miss counts. The metrics collector
// implements it.
type MetricsRecorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// cacheName labels this client's cache in metrics.
const cacheName = "recall"

// Config holds recall client settings.
type Config struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// RatePerSecond caps outbound requests to the upstream API.
	RatePerSecond float64       `yaml:"rate_per_second" json:"rate_per_second"`
	Burst         int           `yaml:"burst" json:"burst"`
	CacheTTL      time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// DefaultConfig returns the default recall client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       10 * time.Second,
		RatePerSecond: 2,
		Burst:         4,
		CacheTTL:      6 * time.Hour,
	}
}

// Client queries recall campaigns, caching results and rate-limiting the
// upstream.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewClient creates a recall client. cache may be nil.
func NewClient(config Config, cache Cache, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 2
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		cache:   cache,
		logger:  logger.With(zap.String("component", "recall_client")),
	}
}

// WithMetrics attaches a cache hit/miss recorder. Returns the client for
// chaining.
func (c *Client) WithMetrics(m MetricsRecorder) *Client {
	c.metrics = m
	return c
}

// RecallsByVehicle returns the recall campaigns for a make, model, and model
// year. Results are served from cache when available.
func (c *Client) RecallsByVehicle(ctx context.Context, vehicleMake, model string, modelYear int) (*Report, error) {
	key := cacheKey(vehicleMake, model, modelYear)
	if c.cache != nil {
		var cached Report
		if err := c.cache.GetJSON(ctx, key, &cached); err == nil {
			c.logger.Debug("recall cache hit", zap.String("key", key))
			if c.metrics != nil {
				c.metrics.RecordCacheHit(cacheName)
			}
			return &cached, nil
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss(cacheName)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	report, err := c.fetch(ctx, vehicleMake, model, modelYear)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, report, c.config.CacheTTL); err != nil {
			// Caching is an optimization; lookups still succeed without it.
			c.logger.Warn("recall cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

func (c *Client) fetch(ctx context.Context, vehicleMake, model string, modelYear int) (*Report, error) {
	u, err := url.Parse(c.config.BaseURL + "/recalls/recallsByVehicle")
	if err != nil {
		return nil, fmt.Errorf("invalid recall base url: %w", err)
	}
	q := u.Query()
	q.Set("make", vehicleMake)
	q.Set("model", model)
	q.Set("modelYear", strconv.Itoa(modelYear))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrRecallUpstream, "recall lookup failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewError(types.ErrRecallUpstream,
			fmt.Sprintf("recall API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, types.NewError(types.ErrRecallUpstream, "invalid recall API response").WithCause(err)
	}
	return &report, nil
}

func cacheKey(vehicleMake, model string, modelYear int) string {
	return fmt.Sprintf("recalls:%s:%s:%d",
		strings.ToLower(vehicleMake), strings.ToLower(model), modelYear)
}
