package meteo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DayTemps is the blended max/min temperature estimate for one calendar
// date. ModelsUsed is the number of named models that contributed; zero
// means the single-model fallback was used.
type DayTemps struct {
	TMax       float64
	TMin       float64
	ModelsUsed int
}

// BlendedDayTemps fetches the hourly series from every named model
// concurrently and blends the per-model day extremes with a median.
// Partial model failures are tolerated; if every model fails, the
// provider-default hourly forecast is used instead.
func (c *Client) BlendedDayTemps(ctx context.Context, lat, lon float64, tz, date string, models []string) (*DayTemps, error) {
	type modelTemps struct {
		tmax float64
		tmin float64
	}

	var wg sync.WaitGroup
	results := make(chan modelTemps, len(models))

	for _, model := range models {
		wg.Add(1)
		go func(model string) {
			defer wg.Done()
			resp, err := c.Hourly(ctx, lat, lon, tz, model)
			if err != nil {
				c.logger.Warn("Model forecast failed, excluding from blend",
					zap.String("model", model), zap.Error(err))
				return
			}
			tmax, tmin, ok := dayExtremes(&resp.Hourly, date)
			if !ok {
				c.logger.Warn("Model forecast has no hourly temperatures for date",
					zap.String("model", model), zap.String("date", date))
				return
			}
			results <- modelTemps{tmax: tmax, tmin: tmin}
		}(model)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var maxes, mins []float64
	for r := range results {
		maxes = append(maxes, r.tmax)
		mins = append(mins, r.tmin)
	}

	if len(maxes) > 0 {
		return &DayTemps{
			TMax:       median(maxes),
			TMin:       median(mins),
			ModelsUsed: len(maxes),
		}, nil
	}

	// Fully-failed blend: fall back to the default model.
	resp, err := c.Hourly(ctx, lat, lon, tz, "")
	if err != nil {
		return nil, fmt.Errorf("blend fallback forecast failed: %w", err)
	}
	tmax, tmin, ok := dayExtremes(&resp.Hourly, date)
	if !ok {
		return nil, fmt.Errorf("no hourly temperatures for %s", date)
	}
	return &DayTemps{TMax: tmax, TMin: tmin, ModelsUsed: 0}, nil
}

// dayExtremes reduces an hourly series to the max and min temperature of
// one calendar date.
func dayExtremes(h *HourlySeries, date string) (tmax, tmin float64, ok bool) {
	for i, t := range h.Time {
		if i >= len(h.Temp) || !strings.HasPrefix(t, date) {
			continue
		}
		v := h.Temp[i]
		if !ok {
			tmax, tmin, ok = v, v, true
			continue
		}
		if v > tmax {
			tmax = v
		}
		if v < tmin {
			tmin = v
		}
	}
	return tmax, tmin, ok
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
