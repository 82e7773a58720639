package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"NetRisk/internal/domain/models"
	"NetRisk/pkg/cache"
	xhttp "NetRisk/pkg/http"
	applogger "NetRisk/pkg/logger"
)

const inputCacheKey = "marketdata:input"

// Config holds the score-service connection settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client pulls obligation matrices and model scores from the upstream score
// service. Fetched windows are cached so recompute ticks between data
// refreshes reuse the same input instead of hammering upstream.
type Client struct {
	cfg    Config
	http   *xhttp.Client
	cache  cache.Service
	logger *applogger.Logger
}

func NewClient(cfg Config, cacheSvc cache.Service, logger *applogger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &Client{
		cfg:    cfg,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		cache:  cacheSvc,
		logger: logger,
	}
}

// Fetch returns the input window for the given horizon count, hitting the
// cache first and upstream on a miss.
func (c *Client) Fetch(ctx context.Context, horizons int) (*models.ForecastInput, error) {
	key := cache.GenerateKeyWithParams(inputCacheKey, horizons)

	if c.cache != nil {
		var cached models.ForecastInput
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn("input cache read failed", applogger.Error(err))
		}
	}

	input, err := c.pull(ctx, horizons)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, input, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("input cache write failed", applogger.Error(err))
		}
	}
	return input, nil
}

// Refresh drops the cached window so the next Fetch pulls a fresh one, and
// verifies upstream is still answering.
func (c *Client) Refresh(ctx context.Context) error {
	if c.cache != nil {
		if err := c.cache.DeleteByPattern(ctx, cache.BuildPattern(inputCacheKey+":")); err != nil {
			c.logger.Warn("input cache invalidation failed", applogger.Error(err))
		}
	}
	return c.Health(ctx)
}

// Health probes the upstream score service.
func (c *Client) Health(ctx context.Context) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.cfg.BaseURL + "/health",
		Headers: c.headers(),
	}, nil)
	if err != nil {
		return fmt.Errorf("score service health: %w", err)
	}
	return nil
}

func (c *Client) pull(ctx context.Context, horizons int) (*models.ForecastInput, error) {
	var payload scoresPayload
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.cfg.BaseURL + "/api/v1/scores",
		Headers: c.headers(),
		QueryParams: map[string][]string{
			"horizons": {strconv.Itoa(horizons)},
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("pull scores: %w", err)
	}
	return payload.toInput()
}

func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.cfg.APIKey != "" {
		h["X-API-Key"] = c.cfg.APIKey
	}
	return h
}

// scoresPayload is the upstream wire shape.
type scoresPayload struct {
	Tickers   []string         `json:"tickers"`
	TotalDays int              `json:"total_days"`
	DateRange []string         `json:"date_range"`
	ModelType string           `json:"model_type"`
	Updated   string           `json:"last_updated"`
	Horizons  []horizonPayload `json:"horizons"`
}

type horizonPayload struct {
	Obligations     [][]float64 `json:"obligations"`
	PredictedScores []float64   `json:"predicted_scores"`
	RiskFactors     []float64   `json:"risk_factors"`
}

func (p *scoresPayload) toInput() (*models.ForecastInput, error) {
	if len(p.Tickers) == 0 {
		return nil, fmt.Errorf("upstream returned empty ticker universe")
	}
	if len(p.Horizons) == 0 {
		return nil, fmt.Errorf("upstream returned no horizons")
	}
	in := &models.ForecastInput{
		Tickers:     p.Tickers,
		TotalDays:   p.TotalDays,
		DateRange:   p.DateRange,
		ModelType:   p.ModelType,
		LastUpdated: p.Updated,
		Horizons:    make([]models.HorizonInput, len(p.Horizons)),
	}
	for i, h := range p.Horizons {
		in.Horizons[i] = models.HorizonInput{
			Obligations:     h.Obligations,
			PredictedScores: h.PredictedScores,
			RiskFactors:     h.RiskFactors,
		}
	}
	return in, nil
}
