package models

import "gorm.io/gorm"

// Calibration is the learned per-city, per-market-type probability bias.
// Rows are created on first resolution for a (city, type) pair and updated
// by exponential smoothing on every subsequent resolution, never deleted.
type Calibration struct {
	gorm.Model
	City       string  `gorm:"uniqueIndex:idx_city_market_type" json:"city"`
	MarketType string  `gorm:"uniqueIndex:idx_city_market_type" json:"market_type"`
	Bias       float64 `json:"bias"`
}
