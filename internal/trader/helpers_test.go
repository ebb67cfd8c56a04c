package trader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"polymarket-weather-bot-go/internal/config"
	"polymarket-weather-bot-go/internal/meteo"
	"polymarket-weather-bot-go/internal/models"
	"polymarket-weather-bot-go/internal/polymarket"
	"polymarket-weather-bot-go/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeForecasts serves canned forecast responses.
type fakeForecasts struct {
	blended    *meteo.DayTemps
	blendedErr error
	daily      *meteo.DailyResponse
	dailyErr   error
}

func (f *fakeForecasts) Daily(ctx context.Context, lat, lon float64, tz string) (*meteo.DailyResponse, error) {
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	if f.daily == nil {
		return nil, errors.New("no daily forecast configured")
	}
	return f.daily, nil
}

func (f *fakeForecasts) Hourly(ctx context.Context, lat, lon float64, tz, model string) (*meteo.HourlyResponse, error) {
	return nil, errors.New("hourly not configured")
}

func (f *fakeForecasts) BlendedDayTemps(ctx context.Context, lat, lon float64, tz, date string, modelNames []string) (*meteo.DayTemps, error) {
	if f.blendedErr != nil {
		return nil, f.blendedErr
	}
	if f.blended == nil {
		return nil, errors.New("no blended forecast configured")
	}
	return f.blended, nil
}

// fakeMarkets serves canned events and quotes, keyed by slug and market
// id respectively.
type fakeMarkets struct {
	events    []polymarket.Event
	searchErr error
	bySlug    map[string]*polymarket.Event
	quotes    map[string]*polymarket.Quote
	quoteErr  error
}

func (f *fakeMarkets) SearchEvents(ctx context.Context, query string) ([]polymarket.Event, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.events, nil
}

func (f *fakeMarkets) EventBySlug(ctx context.Context, slug string) (*polymarket.Event, error) {
	ev, ok := f.bySlug[slug]
	if !ok {
		return nil, errors.New("event not found: " + slug)
	}
	return ev, nil
}

func (f *fakeMarkets) Price(ctx context.Context, tokenID string) (float64, error) {
	return 0, errors.New("price not configured")
}

func (f *fakeMarkets) MarketQuote(ctx context.Context, m *polymarket.Market) (*polymarket.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q, ok := f.quotes[m.ID]
	if !ok {
		return nil, errors.New("no quote for market " + m.ID)
	}
	return q, nil
}

func mockBlend(tmax, tmin float64, modelsUsed int) *meteo.DayTemps {
	return &meteo.DayTemps{TMax: tmax, TMin: tmin, ModelsUsed: modelsUsed}
}

func mockDaily(date string, tmax, tmin float64) *meteo.DailyResponse {
	return &meteo.DailyResponse{Daily: meteo.DailySeries{
		Time:    []string{date},
		TempMax: []float64{tmax},
		TempMin: []float64{tmin},
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.Trading{
			BaseBankroll:         100,
			MinEdge:              0.03,
			MinPrice:             0.15,
			MaxPrice:             0.85,
			MinAbsModelDiff:      0.08,
			MinHoursToClose:      3,
			MaxDailyExposurePct:  0.15,
			MaxCityExposurePct:   0.06,
			StopDailyDrawdownPct: 0.05,
			TickInterval:         1800,
			SearchTerms:          []string{"temperature"},
			Cities: []config.City{{
				Name:     "London",
				Station:  "EGLC",
				Lat:      51.5072,
				Lon:      -0.1276,
				Timezone: "Europe/London",
				Aliases:  []string{"London"},
				Models:   []string{"ecmwf_ifs025", "gfs_seamless"},
			}},
		},
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Trade{}, &models.Calibration{}))
	return store.New(db)
}

func newTestEngine(t *testing.T, forecasts meteo.ClientInterface, markets polymarket.ClientInterface) *Engine {
	t.Helper()
	return &Engine{
		logger:      zap.NewNop(),
		cfg:         testConfig(),
		store:       newTestStore(t),
		forecasts:   forecasts,
		markets:     markets,
		displayMode: "paper",
	}
}
