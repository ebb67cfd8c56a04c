package trader

import (
	"math"
	"time"

	"polymarket-weather-bot-go/internal/models"
	"polymarket-weather-bot-go/internal/store"
)

// BucketStats aggregates resolved trades for one reporting bucket.
type BucketStats struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	PnL     float64 `json:"pnl"`
	Stake   float64 `json:"stake"`
	ROI     float64 `json:"roi"`
	HasROI  bool    `json:"has_roi"`
	Winrate float64 `json:"winrate"`
}

// DailyReport summarizes the trades resolved today.
type DailyReport struct {
	Date        string                  `json:"date"`
	Trades      int                     `json:"trades"`
	PnL         float64                 `json:"pnl"`
	ByCity      map[string]*BucketStats `json:"by_city"`
	EdgeBuckets map[string]*BucketStats `json:"edge_buckets"`
}

// RollingReport summarizes the trades resolved inside a trailing window.
type RollingReport struct {
	WindowDays int                     `json:"window_days"`
	Since      string                  `json:"since"`
	Trades     int                     `json:"trades"`
	Wins       int                     `json:"wins"`
	Losses     int                     `json:"losses"`
	Winrate    float64                 `json:"winrate"`
	PnL        float64                 `json:"pnl"`
	Stake      float64                 `json:"stake"`
	ROI        float64                 `json:"roi"`
	ByCity     map[string]*BucketStats `json:"by_city"`
	ByEdge     map[string]*BucketStats `json:"by_edge"`
}

// edgeBucket labels an edge for reporting.
func edgeBucket(edge float64) string {
	switch {
	case edge < 0.03:
		return "<3%"
	case edge < 0.05:
		return "3-5%"
	case edge < 0.1:
		return "5-10%"
	case edge < 0.2:
		return "10-20%"
	default:
		return "20%+"
	}
}

// trueEdge recomputes the decision-time edge of a resolved row from its
// recorded side, model probability and entry price.
func trueEdge(row *models.Trade) float64 {
	if row.Side == models.SideNo {
		return (1 - row.ModelProb) - row.EntryPrice
	}
	return row.ModelProb - row.EntryPrice
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func (b *BucketStats) add(row *models.Trade) {
	b.Trades++
	b.PnL += row.PnL
	b.Stake += row.StakeUSD
	switch row.Result {
	case models.ResultWin:
		b.Wins++
	case models.ResultLoss:
		b.Losses++
	}
}

func (b *BucketStats) finish() {
	b.PnL = round2(b.PnL)
	b.Stake = round2(b.Stake)
	if b.Stake != 0 {
		b.ROI = round3(b.PnL / b.Stake)
		b.HasROI = true
	}
	if b.Trades > 0 {
		b.Winrate = round3(float64(b.Wins) / float64(b.Trades))
	}
}

// DailySummary aggregates today's resolved trades per city and per edge
// bucket.
func DailySummary(st *store.Store, now time.Time) (*DailyReport, error) {
	today := now.UTC().Format("2006-01-02")
	rows, err := st.ResolvedSince(today)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{
		Date:        today,
		ByCity:      make(map[string]*BucketStats),
		EdgeBuckets: make(map[string]*BucketStats),
	}
	for i := range rows {
		row := &rows[i]
		report.Trades++
		report.PnL += row.PnL

		city := row.City
		if city == "" {
			city = "Unknown"
		}
		if report.ByCity[city] == nil {
			report.ByCity[city] = &BucketStats{}
		}
		report.ByCity[city].add(row)

		bucket := edgeBucket(trueEdge(row))
		if report.EdgeBuckets[bucket] == nil {
			report.EdgeBuckets[bucket] = &BucketStats{}
		}
		report.EdgeBuckets[bucket].add(row)
	}

	report.PnL = round2(report.PnL)
	for _, b := range report.ByCity {
		b.finish()
	}
	for _, b := range report.EdgeBuckets {
		b.finish()
	}
	return report, nil
}

// Rolling aggregates the resolved trades of a trailing window per city
// and per decision-time edge bucket.
func Rolling(st *store.Store, days int, now time.Time) (*RollingReport, error) {
	since := now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := st.ResolvedSince(since)
	if err != nil {
		return nil, err
	}

	report := &RollingReport{
		WindowDays: days,
		Since:      since,
		ByCity:     make(map[string]*BucketStats),
		ByEdge:     make(map[string]*BucketStats),
	}
	for i := range rows {
		row := &rows[i]
		report.Trades++
		report.PnL += row.PnL
		report.Stake += row.StakeUSD
		switch row.Result {
		case models.ResultWin:
			report.Wins++
		case models.ResultLoss:
			report.Losses++
		}

		city := row.City
		if city == "" {
			city = "Unknown"
		}
		if report.ByCity[city] == nil {
			report.ByCity[city] = &BucketStats{}
		}
		report.ByCity[city].add(row)

		bucket := edgeBucket(trueEdge(row))
		if report.ByEdge[bucket] == nil {
			report.ByEdge[bucket] = &BucketStats{}
		}
		report.ByEdge[bucket].add(row)
	}

	report.PnL = round2(report.PnL)
	report.Stake = round2(report.Stake)
	if report.Trades > 0 {
		report.Winrate = round3(float64(report.Wins) / float64(report.Trades))
	}
	if report.Stake != 0 {
		report.ROI = round3(report.PnL / report.Stake)
	}
	for _, b := range report.ByCity {
		b.finish()
	}
	for _, b := range report.ByEdge {
		b.finish()
	}
	return report, nil
}
