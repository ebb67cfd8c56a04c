package meteo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	forecastPath = "/v1/forecast"

	maxRetries   = 3
	retryBackoff = 1500 * time.Millisecond
	callTimeout  = 12 * time.Second
)

// ClientInterface defines the interface for the Open-Meteo forecast client.
type ClientInterface interface {
	Daily(ctx context.Context, lat, lon float64, tz string) (*DailyResponse, error)
	Hourly(ctx context.Context, lat, lon float64, tz, model string) (*HourlyResponse, error)
	BlendedDayTemps(ctx context.Context, lat, lon float64, tz, date string, models []string) (*DayTemps, error)
}

// Client is a client for the Open-Meteo forecast API.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Open-Meteo client.
func NewClient(baseURL string, rateLimit float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(baseURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

// DailySeries is the per-day forecast block of an Open-Meteo response.
type DailySeries struct {
	Time          []string  `json:"time"`
	TempMax       []float64 `json:"temperature_2m_max"`
	TempMin       []float64 `json:"temperature_2m_min"`
	PrecipSum     []float64 `json:"precipitation_sum"`
	PrecipProbMax []float64 `json:"precipitation_probability_max"`
	WindMax       []float64 `json:"wind_speed_10m_max"`
}

// DailyResponse is the response for a daily forecast request.
type DailyResponse struct {
	Daily DailySeries `json:"daily"`
}

// HourlySeries is the per-hour forecast block of an Open-Meteo response.
type HourlySeries struct {
	Time []string  `json:"time"`
	Temp []float64 `json:"temperature_2m"`
}

// HourlyResponse is the response for an hourly forecast request.
type HourlyResponse struct {
	Hourly HourlySeries `json:"hourly"`
}

// DayOutlook is the daily forecast picked out for one calendar date.
type DayOutlook struct {
	Date       string
	TMax       float64
	TMin       float64
	Precip     float64
	PrecipProb float64
	WindMax    float64
}

// doRequest executes a GET with rate limiting and a bounded fixed-backoff
// retry. An exhausted retry surfaces as a definitive error; callers
// downgrade that to skipping the city for the tick.
func (c *Client) doRequest(ctx context.Context, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, callTimeout)
		resp, err = req.SetContext(attemptCtx).Execute("GET", path)
		cancel()

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		if err == nil {
			err = fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if attempt < maxRetries {
			c.logger.Warn("Forecast request failed, retrying...",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// Daily fetches the daily max/min temperature, precipitation and wind
// series for a location.
func (c *Client) Daily(ctx context.Context, lat, lon float64, tz string) (*DailyResponse, error) {
	var out DailyResponse
	req := c.client.R().
		SetResult(&out).
		SetQueryParams(map[string]string{
			"latitude":  fmt.Sprintf("%g", lat),
			"longitude": fmt.Sprintf("%g", lon),
			"daily":     "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max",
			"timezone":  tz,
		})

	resp, err := c.doRequest(ctx, forecastPath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily forecast: %w", err)
	}
	return resp.Result().(*DailyResponse), nil
}

// Hourly fetches the hourly temperature series for a location using a
// specific weather model, or the provider default when model is empty.
func (c *Client) Hourly(ctx context.Context, lat, lon float64, tz, model string) (*HourlyResponse, error) {
	var out HourlyResponse
	params := map[string]string{
		"latitude":  fmt.Sprintf("%g", lat),
		"longitude": fmt.Sprintf("%g", lon),
		"hourly":    "temperature_2m",
		"timezone":  tz,
	}
	if model != "" {
		params["models"] = model
	}

	req := c.client.R().
		SetResult(&out).
		SetQueryParams(params)

	resp, err := c.doRequest(ctx, forecastPath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly forecast: %w", err)
	}
	return resp.Result().(*HourlyResponse), nil
}

// ForDate returns the daily outlook for the given YYYY-MM-DD date, or
// false when the series does not cover it.
func (r *DailyResponse) ForDate(date string) (*DayOutlook, bool) {
	for i, t := range r.Daily.Time {
		if t != date {
			continue
		}
		out := &DayOutlook{Date: date}
		if i < len(r.Daily.TempMax) {
			out.TMax = r.Daily.TempMax[i]
		}
		if i < len(r.Daily.TempMin) {
			out.TMin = r.Daily.TempMin[i]
		}
		if i < len(r.Daily.PrecipSum) {
			out.Precip = r.Daily.PrecipSum[i]
		}
		if i < len(r.Daily.PrecipProbMax) {
			out.PrecipProb = r.Daily.PrecipProbMax[i]
		}
		if i < len(r.Daily.WindMax) {
			out.WindMax = r.Daily.WindMax[i]
		}
		return out, true
	}
	return nil, false
}
