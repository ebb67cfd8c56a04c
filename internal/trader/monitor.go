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

// Stop-loss triggers when the held side trades at or below this fraction
// of the entry price.
const stopLossRatio = 0.8

// Edge-reversal thresholds: switch sides when the held edge has fallen
// below -switchOutEdge and the opposite edge has risen to at least
// switchInEdge.
const (
	switchOutEdge = 0.05
	switchInEdge  = 0.05
)

// MonitorResult summarizes one position-monitor phase.
type MonitorResult struct {
	Updated  int `json:"updated"`
	Switched int `json:"switched"`
}

// runMonitor re-prices every OPEN position. Stop-loss is checked first
// and short-circuits the edge-reversal check; at most one action is
// taken per position per tick. Positions whose backing market cannot be
// resolved are left untouched and retried next tick.
func (e *Engine) runMonitor(ctx context.Context, now time.Time) (*MonitorResult, error) {
	open, err := e.store.OpenTrades()
	if err != nil {
		return nil, fmt.Errorf("could not read open trades: %w", err)
	}

	result := &MonitorResult{}
	for i := range open {
		row := &open[i]
		// Rows missing a link, question, side or model probability are
		// skipped this cycle, not treated as errors.
		slug := polymarket.ExtractEventSlug(row.MarketURL)
		if slug == "" || row.Question == "" || row.Side == "" || row.ModelProb == 0 {
			continue
		}

		_, market, err := e.resolveMarket(ctx, slug, row.Question)
		if err != nil {
			e.logger.Warn("Could not resolve market for open position, retrying next tick",
				zap.Uint("trade_id", row.ID), zap.Error(err))
			continue
		}
		quote, err := e.markets.MarketQuote(ctx, market)
		if err != nil {
			continue
		}

		if e.checkStopLoss(ctx, row, quote) {
			result.Updated++
			continue
		}
		if e.checkSwitch(row, quote, now) {
			result.Updated++
			result.Switched++
		}
	}

	return result, nil
}

// resolveMarket finds a position's backing market inside its event,
// matching on question text with the first market as fallback.
func (e *Engine) resolveMarket(ctx context.Context, slug, question string) (*polymarket.Event, *polymarket.Market, error) {
	event, err := e.markets.EventBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if len(event.Markets) == 0 {
		return nil, nil, fmt.Errorf("event %q has no markets", slug)
	}
	want := strings.TrimSpace(question)
	for i := range event.Markets {
		if strings.TrimSpace(event.Markets[i].Question) == want {
			return event, &event.Markets[i], nil
		}
	}
	return event, &event.Markets[0], nil
}

// checkStopLoss transitions the position to STOP when the held side has
// fallen to the stop threshold, optionally liquidating live.
func (e *Engine) checkStopLoss(ctx context.Context, row *models.Trade, quote *polymarket.Quote) bool {
	if row.EntryPrice <= 0 {
		return false
	}
	current := quote.YesPrice
	token := quote.YesToken
	if row.Side == models.SideNo {
		current = quote.NoPrice
		token = quote.NoToken
	}
	if current > row.EntryPrice*stopLossRatio {
		return false
	}

	note := fmt.Sprintf("Stop-loss hit at %g (entry %g)", current, row.EntryPrice)
	if e.cfg.Trading.Live && e.exchange != nil && token != "" && row.EntryPrice > 0 {
		size := row.StakeUSD / row.EntryPrice
		sell := e.exchange.PlaceSellOrder(ctx, token, current, size)
		if sell.Success {
			note += " | Live sell " + sell.OrderID
		} else {
			note += " | Live sell failed: " + sell.Err
		}
	}

	if _, err := e.store.UpdateTrade(row.ID, map[string]interface{}{
		"status": models.StatusStop,
		"notes":  note,
	}); err != nil {
		e.logger.Error("Failed to record stop-loss", zap.Uint("trade_id", row.ID), zap.Error(err))
		return false
	}
	e.logger.Info("Stop-loss triggered",
		zap.Uint("trade_id", row.ID),
		zap.String("city", row.City),
		zap.Float64("current", current),
		zap.Float64("entry", row.EntryPrice),
	)
	return true
}

// checkSwitch closes the position as SWITCHED and opens a child row on
// the opposite side when the edge has decisively reversed. The child
// inherits the stake and size fraction: this is a position flip, not a
// new independent decision.
func (e *Engine) checkSwitch(row *models.Trade, quote *polymarket.Quote, now time.Time) bool {
	edgeYes := row.ModelProb - quote.YesPrice
	edgeNo := (1 - row.ModelProb) - quote.NoPrice

	edgeHeld, edgeOpp := edgeYes, edgeNo
	oppSide, oppPrice := models.SideNo, quote.NoPrice
	if row.Side == models.SideNo {
		edgeHeld, edgeOpp = edgeNo, edgeYes
		oppSide, oppPrice = models.SideYes, quote.YesPrice
	}

	if edgeHeld >= -switchOutEdge || edgeOpp < switchInEdge {
		return false
	}

	if _, err := e.store.UpdateTrade(row.ID, map[string]interface{}{
		"status": models.StatusSwitched,
		"notes":  fmt.Sprintf("Switched to %s at %s", oppSide, now.UTC().Format(time.RFC3339)),
	}); err != nil {
		e.logger.Error("Failed to close switched position", zap.Uint("trade_id", row.ID), zap.Error(err))
		return false
	}

	sizePct := row.SizePct
	if sizePct == 0 {
		sizePct = minSizePct
	}
	stake := row.StakeUSD
	if stake == 0 {
		stake = 1
	}

	child := models.Trade{
		City:       row.City,
		Station:    row.Station,
		Question:   row.Question,
		MarketURL:  row.MarketURL,
		EventDate:  row.EventDate,
		Side:       oppSide,
		EntryPrice: oppPrice,
		ModelProb:  row.ModelProb,
		Edge:       edgeOpp,
		SizePct:    sizePct,
		StakeUSD:   stake,
		Status:     models.StatusOpen,
		Result:     models.ResultPending,
		Notes:      "Switch from " + row.Side,
	}
	if err := e.store.InsertTrade(&child); err != nil {
		e.logger.Error("Failed to open switch child", zap.Uint("trade_id", row.ID), zap.Error(err))
		return true // the parent is already closed; count the update
	}

	e.logger.Info("Switched position",
		zap.Uint("trade_id", row.ID),
		zap.Uint("child_id", child.ID),
		zap.String("city", row.City),
		zap.String("from", row.Side),
		zap.String("to", oppSide),
		zap.Float64("entry_price", oppPrice),
	)
	return true
}
