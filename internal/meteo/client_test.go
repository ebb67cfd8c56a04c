package meteo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 1000, 100, zap.NewNop())
}

func TestDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "51.5072", r.URL.Query().Get("latitude"))
		assert.Equal(t, "Europe/London", r.URL.Query().Get("timezone"))
		assert.Contains(t, r.URL.Query().Get("daily"), "temperature_2m_max")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"daily":{
			"time":["2026-09-01","2026-09-02"],
			"temperature_2m_max":[10.2,12.4],
			"temperature_2m_min":[4.1,5.0],
			"precipitation_sum":[0.0,1.2],
			"precipitation_probability_max":[5,40],
			"wind_speed_10m_max":[18.0,25.5]}}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	daily, err := c.Daily(context.Background(), 51.5072, -0.1276, "Europe/London")
	require.NoError(t, err)

	day, ok := daily.ForDate("2026-09-02")
	require.True(t, ok)
	assert.InDelta(t, 12.4, day.TMax, 1e-9)
	assert.InDelta(t, 5.0, day.TMin, 1e-9)
	assert.InDelta(t, 1.2, day.Precip, 1e-9)
	assert.InDelta(t, 40, day.PrecipProb, 1e-9)
	assert.InDelta(t, 25.5, day.WindMax, 1e-9)

	_, ok = daily.ForDate("2026-09-03")
	assert.False(t, ok)
}

func TestHourlyModelParam(t *testing.T) {
	var sawModel atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawModel.Store(r.URL.Query().Get("models"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hourly":{"time":["2026-09-01T12:00"],"temperature_2m":[9.5]}}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	resp, err := c.Hourly(context.Background(), 51.5, -0.13, "Europe/London", "ecmwf_ifs025")
	require.NoError(t, err)
	assert.Equal(t, "ecmwf_ifs025", sawModel.Load())
	require.Len(t, resp.Hourly.Temp, 1)
	assert.InDelta(t, 9.5, resp.Hourly.Temp[0], 1e-9)

	// Empty model means the provider default, not an empty models param.
	_, err = c.Hourly(context.Background(), 51.5, -0.13, "Europe/London", "")
	require.NoError(t, err)
	assert.Equal(t, "", sawModel.Load())
}

func TestDailyRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"daily":{"time":["2026-09-01"],"temperature_2m_max":[10],"temperature_2m_min":[4]}}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	daily, err := c.Daily(context.Background(), 51.5, -0.13, "Europe/London")
	require.NoError(t, err)

	_, ok := daily.ForDate("2026-09-01")
	assert.True(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
