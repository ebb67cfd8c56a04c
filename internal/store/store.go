package store

import (
	"errors"
	"fmt"
	"time"

	"polymarket-weather-bot-go/internal/models"

	"gorm.io/gorm"
)

// Store is the single owner of the trade and calibration tables. All
// bankroll and exposure figures are derived fresh from the rows rather
// than cached, so risk accounting can never go stale.
type Store struct {
	db *gorm.DB
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for handlers that need raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// InsertTrade persists a new trade row, defaulting status to SKIP and
// result to PENDING like the schema expects.
func (s *Store) InsertTrade(t *models.Trade) error {
	if t.Status == "" {
		t.Status = models.StatusSkip
	}
	if t.Result == "" {
		t.Result = models.ResultPending
	}
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// UpdateTrade applies a partial column update and reports how many rows
// were affected.
func (s *Store) UpdateTrade(id uint, fields map[string]interface{}) (int64, error) {
	res := s.db.Model(&models.Trade{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update trade %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// TradeByID fetches a single trade, returning nil when it does not exist.
func (s *Store) TradeByID(id uint) (*models.Trade, error) {
	var t models.Trade
	if err := s.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// OpenTrades returns every row currently in the OPEN state.
func (s *Store) OpenTrades() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Where("status = ?", models.StatusOpen).Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// AllTrades returns the full table, newest first. The discovery engine
// builds its exposure snapshot from one such read per tick.
func (s *Store) AllTrades() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("id desc").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// TradesByStatus returns rows filtered on status, newest first.
func (s *Store) TradesByStatus(status string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Where("status = ?", status).Order("id desc").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// TradesByCityDate returns the rows recorded for one city and event date.
func (s *Store) TradesByCityDate(city, date string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.Where("city = ? AND event_date = ?", city, date).
		Order("created_at desc").Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// TradesAwaitingResolution returns OPEN, STOP and SWITCHED rows whose
// result is still PENDING. Stopped and switched legs stay in this set
// until the underlying market settles.
func (s *Store) TradesAwaitingResolution() ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.Where("status IN ? AND result = ?",
		[]string{models.StatusOpen, models.StatusStop, models.StatusSwitched},
		models.ResultPending).Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// ResolvedPnLOn sums realized PnL for trades resolved on the given
// YYYY-MM-DD day.
func (s *Store) ResolvedPnLOn(day string) (float64, error) {
	var pnl float64
	err := s.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(pnl), 0)").
		Where("result IN ? AND resolved_at <> '' AND substr(resolved_at, 1, 10) = ?",
			[]string{models.ResultWin, models.ResultLoss}, day).
		Scan(&pnl).Error
	if err != nil {
		return 0, err
	}
	return pnl, nil
}

// Bankroll is the base stake plus all realized PnL to date.
func (s *Store) Bankroll(base float64) (float64, error) {
	var realized float64
	err := s.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(pnl), 0)").
		Where("result IN ?", []string{models.ResultWin, models.ResultLoss}).
		Scan(&realized).Error
	if err != nil {
		return 0, err
	}
	return base + realized, nil
}

// ResolvedSince returns WIN/LOSS rows resolved on or after the given
// YYYY-MM-DD day, newest first.
func (s *Store) ResolvedSince(day string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.Where("result IN ? AND resolved_at <> '' AND substr(resolved_at, 1, 10) >= ?",
		[]string{models.ResultWin, models.ResultLoss}, day).
		Order("resolved_at desc").Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// MarkOpenSkipped flips every OPEN row to SKIP, appending the note. Used
// by the kill switch.
func (s *Store) MarkOpenSkipped(note string) (int64, error) {
	res := s.db.Model(&models.Trade{}).
		Where("status = ?", models.StatusOpen).
		Updates(map[string]interface{}{
			"status": models.StatusSkip,
			"notes":  gorm.Expr("COALESCE(notes, '') || ?", " | "+note),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Calibration returns the learned bias row for a (city, market type)
// pair, or nil when none exists yet.
func (s *Store) Calibration(city, marketType string) (*models.Calibration, error) {
	var c models.Calibration
	err := s.db.Where("city = ? AND market_type = ?", city, marketType).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// UpsertCalibration creates or updates the bias for a (city, market type)
// pair.
func (s *Store) UpsertCalibration(city, marketType string, bias float64) error {
	var c models.Calibration
	err := s.db.Where("city = ? AND market_type = ?", city, marketType).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = models.Calibration{City: city, MarketType: marketType, Bias: bias}
		return s.db.Create(&c).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&c).Updates(map[string]interface{}{
		"bias":       bias,
		"updated_at": time.Now(),
	}).Error
}

// Calibrations returns every calibration row ordered by city and type.
func (s *Store) Calibrations() ([]models.Calibration, error) {
	var rows []models.Calibration
	if err := s.db.Order("city, market_type").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
