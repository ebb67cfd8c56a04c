package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"polymarket-weather-bot-go/internal/models"
	"polymarket-weather-bot-go/internal/polymarket"

	"go.uber.org/zap"
)

// An outcome is considered settled once its reported price reaches this
// confidence; below it the record stays PENDING and is retried.
const settleConfidence = 0.95

// Calibration EWMA weights: the bias decays slowly toward the observed
// forecast error.
const (
	calibrationDecay = 0.9
	calibrationGain  = 0.1
)

// ResolveResult summarizes one resolver phase.
type ResolveResult struct {
	Resolved int `json:"resolved"`
}

// settledOutcome is the winning outcome of a closed market.
type settledOutcome struct {
	label      string
	value      int // 1 for YES, 0 otherwise
	confidence float64
}

// runResolver finalizes every OPEN, STOP or SWITCHED record whose
// backing market has settled: it writes the WIN/LOSS result and realized
// PnL, then folds the observed error into the calibration bias. Marking
// the result non-PENDING here is what guarantees the EWMA is applied at
// most once per resolution event.
func (e *Engine) runResolver(ctx context.Context, now time.Time) (*ResolveResult, error) {
	rows, err := e.store.TradesAwaitingResolution()
	if err != nil {
		return nil, fmt.Errorf("could not read pending trades: %w", err)
	}

	nowISO := now.UTC().Format(time.RFC3339)
	result := &ResolveResult{}

	for i := range rows {
		row := &rows[i]
		slug := polymarket.ExtractEventSlug(row.MarketURL)
		if slug == "" || row.Question == "" || row.Side == "" {
			continue
		}

		event, market, err := e.resolveMarket(ctx, slug, row.Question)
		if err != nil {
			e.logger.Warn("Could not fetch event for resolution, retrying next tick",
				zap.Uint("trade_id", row.ID), zap.Error(err))
			continue
		}
		if !market.Closed && !event.Closed {
			continue
		}

		final := settledFrom(market)
		if final == nil {
			// Settlement not yet confident; leave PENDING.
			continue
		}

		win := (final.value == 1 && row.Side == models.SideYes) ||
			(final.value == 0 && row.Side == models.SideNo)
		pnl := -row.StakeUSD
		if win {
			pnl = row.StakeUSD * (1/row.EntryPrice - 1)
		}
		res := models.ResultLoss
		if win {
			res = models.ResultWin
		}

		if _, err := e.store.UpdateTrade(row.ID, map[string]interface{}{
			"status":      models.StatusResolved,
			"result":      res,
			"pnl":         pnl,
			"resolved_at": nowISO,
		}); err != nil {
			e.logger.Error("Failed to record resolution", zap.Uint("trade_id", row.ID), zap.Error(err))
			continue
		}
		result.Resolved++

		e.logger.Info("Resolved position",
			zap.Uint("trade_id", row.ID),
			zap.String("city", row.City),
			zap.String("result", res),
			zap.Float64("pnl", pnl),
			zap.Float64("confidence", final.confidence),
		)

		if row.ModelProb != 0 {
			e.updateCalibration(row, final.value)
		}
	}

	return result, nil
}

// settledFrom reads the winning outcome off a market's reported prices.
// Returns nil when no outcome reaches the confidence threshold.
func settledFrom(market *polymarket.Market) *settledOutcome {
	outcomes := market.OutcomeLabels()
	prices := market.PriceList()
	if len(outcomes) == 0 || len(prices) == 0 {
		return nil
	}

	maxIdx := -1
	maxPrice := -1.0
	for i, p := range prices {
		if p > maxPrice {
			maxPrice = p
			maxIdx = i
		}
	}
	if maxPrice < settleConfidence || maxIdx >= len(outcomes) {
		return nil
	}

	label := outcomes[maxIdx]
	value := 0
	if strings.EqualFold(label, "yes") {
		value = 1
	}
	return &settledOutcome{label: label, value: value, confidence: maxPrice}
}

// updateCalibration folds one settled outcome into the (city, market
// type) bias: bias' = decay*bias + gain*(outcome - model probability).
func (e *Engine) updateCalibration(row *models.Trade, outcome int) {
	city := row.City
	if city == "" {
		city = "Unknown"
	}
	marketType := DetectMarketType(row.Question)
	if marketType == "" {
		marketType = "other"
	}

	prev := 0.0
	if existing, err := e.store.Calibration(city, marketType); err == nil && existing != nil {
		prev = existing.Bias
	}

	bias := prev*calibrationDecay + (float64(outcome)-row.ModelProb)*calibrationGain
	if err := e.store.UpsertCalibration(city, marketType, bias); err != nil {
		e.logger.Error("Failed to update calibration",
			zap.String("city", city), zap.String("market_type", marketType), zap.Error(err))
		return
	}
	e.logger.Debug("Calibration updated",
		zap.String("city", city),
		zap.String("market_type", marketType),
		zap.Float64("bias", bias),
	)
}
