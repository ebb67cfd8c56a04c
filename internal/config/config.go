package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Polymarket Polymarket `mapstructure:"polymarket"`
	Meteo      Meteo      `mapstructure:"meteo"`
	Trading    Trading    `mapstructure:"trading"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Polymarket holds the configuration for the Gamma and CLOB APIs.
type Polymarket struct {
	GammaURL       string  `mapstructure:"gamma_url"`
	ClobURL        string  `mapstructure:"clob_url"`
	ApiKey         string  `mapstructure:"apiKey"`
	Secret         string  `mapstructure:"secret"`
	Passphrase     string  `mapstructure:"passphrase"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Meteo holds the configuration for the Open-Meteo forecast API.
type Meteo struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the dashboard API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// City describes one tradable city: its weather station, coordinates,
// the aliases that may appear in market questions, and the forecast
// models used for blending.
type City struct {
	Name     string   `mapstructure:"name"`
	Station  string   `mapstructure:"station"`
	Lat      float64  `mapstructure:"lat"`
	Lon      float64  `mapstructure:"lon"`
	Timezone string   `mapstructure:"timezone"`
	Aliases  []string `mapstructure:"aliases"`
	Models   []string `mapstructure:"models"`
}

// Trading holds the configuration for the trading decision engine.
type Trading struct {
	Live                 bool     `mapstructure:"live"`
	BaseBankroll         float64  `mapstructure:"base_bankroll"`
	MinEdge              float64  `mapstructure:"min_edge"`
	MinPrice             float64  `mapstructure:"min_price"`
	MaxPrice             float64  `mapstructure:"max_price"`
	MinAbsModelDiff      float64  `mapstructure:"min_abs_model_diff"`
	MinHoursToClose      float64  `mapstructure:"min_hours_to_close"`
	MaxDailyExposurePct  float64  `mapstructure:"max_daily_exposure_pct"`
	MaxCityExposurePct   float64  `mapstructure:"max_city_exposure_pct"`
	StopDailyDrawdownPct float64  `mapstructure:"stop_daily_drawdown_pct"`
	TickInterval         int      `mapstructure:"tick_interval"`
	SearchTerms          []string `mapstructure:"search_terms"`
	Cities               []City   `mapstructure:"cities"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("polymarket.gamma_url", "https://gamma-api.polymarket.com")
	viper.SetDefault("polymarket.clob_url", "https://clob.polymarket.com")
	viper.SetDefault("polymarket.rate_limit", 10) // requests per second
	viper.SetDefault("polymarket.rate_limit_burst", 5)
	viper.SetDefault("meteo.base_url", "https://api.open-meteo.com")
	viper.SetDefault("meteo.rate_limit", 10)
	viper.SetDefault("meteo.rate_limit_burst", 5)
	viper.SetDefault("trading.base_bankroll", 100)
	viper.SetDefault("trading.min_edge", 0.03)
	viper.SetDefault("trading.min_price", 0.15)
	viper.SetDefault("trading.max_price", 0.85)
	viper.SetDefault("trading.min_abs_model_diff", 0.08)
	viper.SetDefault("trading.min_hours_to_close", 3)
	viper.SetDefault("trading.max_daily_exposure_pct", 0.15)
	viper.SetDefault("trading.max_city_exposure_pct", 0.06)
	viper.SetDefault("trading.stop_daily_drawdown_pct", 0.05)
	viper.SetDefault("trading.tick_interval", 1800) // seconds
	viper.SetDefault("trading.search_terms", []string{"temperature", "rain", "precipitation", "snow", "wind"})

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
