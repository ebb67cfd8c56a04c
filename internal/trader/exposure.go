package trader

import (
	"polymarket-weather-bot-go/internal/models"
)

// exposureSnapshot is the discovery engine's view of recorded positions,
// built once per phase from a single full-table read so risk-cap
// accounting stays consistent within the phase. Open stake is summed
// over currently-OPEN rows only; stopped, switched and resolved stake
// no longer counts against the caps.
type exposureSnapshot struct {
	anyByCityDate     map[string]bool
	nonSkipByCityDate map[string]bool
	openStakeCityDate map[string]float64
	openStakeByDate   map[string]float64
}

func cityDateKey(city, date string) string {
	return city + "|" + date
}

// buildExposure aggregates the trade rows into the snapshot.
func buildExposure(rows []models.Trade) *exposureSnapshot {
	snap := &exposureSnapshot{
		anyByCityDate:     make(map[string]bool),
		nonSkipByCityDate: make(map[string]bool),
		openStakeCityDate: make(map[string]float64),
		openStakeByDate:   make(map[string]float64),
	}

	for _, row := range rows {
		if row.City == "" || row.EventDate == "" {
			continue
		}
		key := cityDateKey(row.City, row.EventDate)
		snap.anyByCityDate[key] = true
		if row.Status != "" && row.Status != models.StatusSkip {
			snap.nonSkipByCityDate[key] = true
		}
		if row.Status == models.StatusOpen {
			snap.openStakeCityDate[key] += row.StakeUSD
			snap.openStakeByDate[row.EventDate] += row.StakeUSD
		}
	}

	return snap
}

// hasAnyRecord reports whether any row, including SKIPs, exists for the
// (city, date) pair.
func (s *exposureSnapshot) hasAnyRecord(city, date string) bool {
	return s.anyByCityDate[cityDateKey(city, date)]
}

// hasPosition reports whether a non-SKIP row exists for the (city, date)
// pair.
func (s *exposureSnapshot) hasPosition(city, date string) bool {
	return s.nonSkipByCityDate[cityDateKey(city, date)]
}

// openStakeFor returns the OPEN stake already committed to the
// (city, date) pair.
func (s *exposureSnapshot) openStakeFor(city, date string) float64 {
	return s.openStakeCityDate[cityDateKey(city, date)]
}

// openStakeOn returns the OPEN stake already committed across all cities
// for an event date.
func (s *exposureSnapshot) openStakeOn(date string) float64 {
	return s.openStakeByDate[date]
}
