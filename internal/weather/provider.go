// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/geopulse/internal/cache"
	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/metrics"
	"github.com/tomtom215/geopulse/internal/models"
)

// Failure causes for operator-facing logs and metrics.
const (
	causeAuth        = "auth"
	causeRateLimit   = "rate_limit"
	causeNetwork     = "network"
	causeDecode      = "decode"
	causeBreakerOpen = "breaker_open"
)

// Config holds the environmental provider settings. An empty APIKey means
// the provider runs in synthetic-only mode.
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Provider fetches an environmental Reading for a coordinate. A live
// upstream call is attempted when a credential is configured; every failure
// path substitutes a synthetic Reading so a location update is never
// blocked or failed by weather availability.
type Provider struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[models.Reading]
	limiter *rate.Limiter
	recent  *cache.LRU[models.Reading]
	synth   *Synthesizer
}

// Live readings are cached per coordinate cell so a burst of updates from
// the same area does not spend the upstream request budget. Cells are
// roughly 1 km wide (two decimal places of latitude).
const (
	cacheCapacity = 4096
	cacheTTL      = 10 * time.Minute
)

// New creates a Provider. The circuit breaker opens after repeated upstream
// failures and rejects calls for a cooldown window; rejected and failed
// calls all fall back to synthetic readings.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	breakerName := "weather-api"
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[models.Reading](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("weather circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		recent:  cache.NewLRU[models.Reading](cacheCapacity, cacheTTL),
		synth:   NewSynthesizer(),
	}
}

// cellKey buckets a coordinate into its cache cell.
func cellKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

// Current returns a Reading for the coordinate. It never returns an error:
// when the live call cannot be made or fails for any reason, a synthetic
// Reading is generated instead and the cause is logged for operators.
func (p *Provider) Current(ctx context.Context, lat, lon float64) models.Reading {
	if p.cfg.APIKey == "" {
		metrics.WeatherRequests.WithLabelValues("synthetic").Inc()
		return p.synth.Reading()
	}

	key := cellKey(lat, lon)
	if reading, ok := p.recent.Get(key); ok {
		metrics.WeatherRequests.WithLabelValues("cached").Inc()
		return reading
	}

	if !p.limiter.Allow() {
		p.fallback(causeRateLimit, errors.New("local request budget exhausted"))
		return p.synth.Reading()
	}

	reading, err := p.breaker.Execute(func() (models.Reading, error) {
		return p.fetchLive(ctx, lat, lon)
	})
	if err != nil {
		p.fallback(classify(err), err)
		return p.synth.Reading()
	}

	p.recent.Put(key, reading)
	metrics.WeatherRequests.WithLabelValues("live").Inc()
	return reading
}

// fallback records a live-call failure and its classified cause.
func (p *Provider) fallback(cause string, err error) {
	metrics.WeatherRequests.WithLabelValues("synthetic").Inc()
	metrics.WeatherFailures.WithLabelValues(cause).Inc()
	logging.Warn().Err(err).Str("cause", cause).Msg("weather fetch failed, using synthetic reading")
}

// statusError carries the upstream HTTP status for failure classification.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("weather api returned status %d", e.code)
}

// classify maps an error to a failure cause for logs and metrics.
func classify(err error) string {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return causeBreakerOpen
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return causeAuth
		case se.code == http.StatusTooManyRequests:
			return causeRateLimit
		}
		return causeNetwork
	}
	var de *decodeError
	if errors.As(err, &de) {
		return causeDecode
	}
	return causeNetwork
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "decode weather response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// currentResponse is the subset of the upstream current-weather body the
// Reading needs. Wind speed arrives in m/s and visibility in meters.
type currentResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Visibility *float64 `json:"visibility"`
}

// fetchLive performs the upstream call and converts units.
func (p *Provider) fetchLive(ctx context.Context, lat, lon float64) (models.Reading, error) {
	url := fmt.Sprintf("%s/data/2.5/weather?lat=%f&lon=%f&units=metric&appid=%s",
		p.cfg.BaseURL, lat, lon, p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Reading{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Reading{}, fmt.Errorf("weather request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Reading{}, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Reading{}, fmt.Errorf("read weather response: %w", err)
	}

	var parsed currentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.Reading{}, &decodeError{err: err}
	}

	reading := models.Reading{
		TemperatureC: parsed.Main.Temp,
		HumidityPct:  parsed.Main.Humidity,
		PressureHPa:  parsed.Main.Pressure,
		Source:       models.ReadingSourceLive,
	}
	if parsed.Wind.Speed != nil {
		reading.WindSpeedKmh = models.Float(*parsed.Wind.Speed * models.MpsToKmh)
	}
	if parsed.Visibility != nil {
		reading.VisibilityKm = models.Float(*parsed.Visibility / 1000)
	}
	return reading, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
