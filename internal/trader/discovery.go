package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"polymarket-weather-bot-go/internal/config"
	"polymarket-weather-bot-go/internal/models"
	"polymarket-weather-bot-go/internal/polymarket"

	"go.uber.org/zap"
)

// DiscoveryResult summarizes one trade-discovery phase.
type DiscoveryResult struct {
	OpenedOrLogged int     `json:"opened_or_logged"`
	StopForDay     bool    `json:"stop_for_day"`
	Bankroll       float64 `json:"bankroll"`
}

// candidate is a qualifying instrument/side pick, carrying the token id
// the live order would need.
type candidate struct {
	trade models.Trade
	token string
}

// dayForecast is the temperature estimate discovery prices markets from.
type dayForecast struct {
	tmax       float64
	tmin       float64
	modelsUsed int
}

// runDiscovery walks every configured city and records at most one trade
// per (city, event date): the candidate with the largest edge that clears
// the price band, model-difference, minimum-edge and sizing filters.
// Cities and instruments that fail on I/O are skipped for this tick.
func (e *Engine) runDiscovery(ctx context.Context, now time.Time) (*DiscoveryResult, error) {
	bankroll, err := e.store.Bankroll(e.cfg.Trading.BaseBankroll)
	if err != nil {
		return nil, fmt.Errorf("could not compute bankroll: %w", err)
	}
	todayPnl, err := e.store.ResolvedPnLOn(now.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("could not compute today's pnl: %w", err)
	}
	stopForDay := todayPnl <= -e.cfg.Trading.StopDailyDrawdownPct*bankroll
	if stopForDay {
		e.logger.Warn("Daily drawdown breached, no new stakes this tick",
			zap.Float64("today_pnl", todayPnl), zap.Float64("bankroll", bankroll))
	}

	rows, err := e.store.AllTrades()
	if err != nil {
		return nil, fmt.Errorf("could not read trades for exposure snapshot: %w", err)
	}
	exposure := buildExposure(rows)

	var logs []candidate
	for _, city := range e.cfg.Trading.Cities {
		cityLogs, err := e.discoverCity(ctx, city, bankroll, stopForDay, exposure, now)
		if err != nil {
			e.logger.Warn("Skipping city this tick", zap.String("city", city.Name), zap.Error(err))
			continue
		}
		logs = append(logs, cityLogs...)
	}

	for i := range logs {
		log := &logs[i]
		if err := e.store.InsertTrade(&log.trade); err != nil {
			e.logger.Error("Failed to record trade", zap.String("city", log.trade.City), zap.Error(err))
			continue
		}
		if log.trade.Status == models.StatusOpen {
			e.logger.Info("Opened position",
				zap.String("city", log.trade.City),
				zap.String("date", log.trade.EventDate),
				zap.String("side", log.trade.Side),
				zap.Float64("entry_price", log.trade.EntryPrice),
				zap.Float64("edge", log.trade.Edge),
				zap.Float64("stake_usd", log.trade.StakeUSD),
			)
			e.placeLiveBuy(ctx, log)
		}
	}

	return &DiscoveryResult{
		OpenedOrLogged: len(logs),
		StopForDay:     stopForDay,
		Bankroll:       bankroll,
	}, nil
}

// discoverCity produces the per-city candidate rows: the best-edge pick
// per event date, or a single SKIP row when nothing qualifies for a
// never-seen local date.
func (e *Engine) discoverCity(ctx context.Context, city config.City, bankroll float64, stopForDay bool, exposure *exposureSnapshot, now time.Time) ([]candidate, error) {
	loc, err := time.LoadLocation(city.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", city.Timezone, err)
	}
	localDate := LocalDate(loc, now)

	forecast, err := e.cityForecast(ctx, city, localDate)
	if err != nil {
		return nil, err
	}

	events := e.searchCityMarkets(ctx, city)
	bestByDate := make(map[string]candidate)

	for i := range events {
		event := &events[i]
		if event.Closed {
			continue
		}
		eventDate := ""
		if len(event.EndDate) >= 10 {
			eventDate = event.EndDate[:10]
		}

		for j := range event.Markets {
			market := &event.Markets[j]
			c, ok := e.evaluateMarket(ctx, city, event, market, forecast, eventDate, localDate, loc, bankroll, stopForDay, exposure, now)
			if !ok {
				continue
			}
			best, seen := bestByDate[c.trade.EventDate]
			if !seen || c.trade.Edge > best.trade.Edge {
				bestByDate[c.trade.EventDate] = c
			}
		}
	}

	var logs []candidate
	if len(bestByDate) > 0 {
		for _, c := range bestByDate {
			// Never open a second position for a pair that already has one.
			if !exposure.hasPosition(c.trade.City, c.trade.EventDate) {
				logs = append(logs, c)
			}
		}
		return logs, nil
	}

	// No qualifying market: log one SKIP per never-seen (city, date) pair.
	if !exposure.hasAnyRecord(city.Name, localDate) {
		logs = append(logs, candidate{trade: models.Trade{
			City:      city.Name,
			Station:   city.Station,
			Question:  "No qualifying market",
			EventDate: localDate,
			Status:    models.StatusSkip,
			Result:    models.ResultPending,
			Notes:     "No qualifying temperature market met filters",
		}})
	}
	return logs, nil
}

// cityForecast blends the per-model hourly forecasts, falling back to
// the daily series when the blend has nothing for the date.
func (e *Engine) cityForecast(ctx context.Context, city config.City, localDate string) (*dayForecast, error) {
	blended, blendErr := e.forecasts.BlendedDayTemps(ctx, city.Lat, city.Lon, city.Timezone, localDate, city.Models)
	if blendErr == nil {
		return &dayForecast{tmax: blended.TMax, tmin: blended.TMin, modelsUsed: blended.ModelsUsed}, nil
	}
	e.logger.Warn("Blended forecast unavailable, trying daily series",
		zap.String("city", city.Name), zap.Error(blendErr))

	daily, err := e.forecasts.Daily(ctx, city.Lat, city.Lon, city.Timezone)
	if err != nil {
		return nil, fmt.Errorf("no forecast available: %w", err)
	}
	day, ok := daily.ForDate(localDate)
	if !ok {
		return nil, fmt.Errorf("daily forecast does not cover %s", localDate)
	}
	return &dayForecast{tmax: day.TMax, tmin: day.TMin}, nil
}

// searchCityMarkets queries every (alias, term) combination and
// deduplicates the returned events by id. Individual query failures are
// tolerated.
func (e *Engine) searchCityMarkets(ctx context.Context, city config.City) []polymarket.Event {
	seen := make(map[string]bool)
	var events []polymarket.Event

	for _, alias := range city.Aliases {
		for _, term := range e.cfg.Trading.SearchTerms {
			found, err := e.markets.SearchEvents(ctx, alias+" "+term)
			if err != nil {
				e.logger.Warn("Market search failed",
					zap.String("city", city.Name),
					zap.String("alias", alias),
					zap.String("term", term),
					zap.Error(err))
				continue
			}
			for _, ev := range found {
				if ev.ID == "" || seen[ev.ID] {
					continue
				}
				seen[ev.ID] = true
				events = append(events, ev)
			}
		}
	}
	return events
}

// evaluateMarket turns one instrument into a sized candidate, or rejects
// it. All four entry filters and both exposure caps must pass.
func (e *Engine) evaluateMarket(ctx context.Context, city config.City, event *polymarket.Event, market *polymarket.Market, forecast *dayForecast, eventDate, localDate string, loc *time.Location, bankroll float64, stopForDay bool, exposure *exposureSnapshot, now time.Time) (candidate, bool) {
	none := candidate{}
	if market.Closed || !market.Active {
		return none, false
	}

	question := market.Question
	if !aliasMatches(question, city.Aliases) {
		return none, false
	}

	dateStr := ParseDateFromQuestion(question, loc, now)
	if dateStr == "" {
		dateStr = eventDate
	}
	if dateStr != "" && dateStr < localDate {
		return none, false
	}

	// Temperature-threshold markets only.
	marketType := DetectMarketType(question)
	if marketType != MarketTempMax && marketType != MarketTempMin {
		return none, false
	}

	forecastTemp := forecast.tmax
	if marketType == MarketTempMin {
		forecastTemp = forecast.tmin
	}
	modelProb, ok := questionProbability(question, forecastTemp)
	if !ok {
		return none, false
	}
	modelProb = e.applyCalibration(city.Name, marketType, modelProb)

	quote, err := e.markets.MarketQuote(ctx, market)
	if err != nil {
		return none, false
	}

	// Guardrail against illiquid, about-to-settle markets.
	if event.EndDate != "" {
		if end, err := time.Parse(time.RFC3339, event.EndDate); err == nil {
			hrs := end.Sub(now).Hours()
			if hrs >= 0 && hrs < e.cfg.Trading.MinHoursToClose {
				return none, false
			}
		}
	}

	edgeYes := modelProb - quote.YesPrice
	edgeNo := (1 - modelProb) - quote.NoPrice
	side, price, edge, token := models.SideYes, quote.YesPrice, edgeYes, quote.YesToken
	if edgeNo >= edgeYes {
		side, price, edge, token = models.SideNo, quote.NoPrice, edgeNo, quote.NoToken
	}

	marketProbYes := quote.YesPrice
	if marketProbYes < e.cfg.Trading.MinPrice || marketProbYes > e.cfg.Trading.MaxPrice {
		return none, false
	}
	if diff := modelProb - marketProbYes; diff < e.cfg.Trading.MinAbsModelDiff && diff > -e.cfg.Trading.MinAbsModelDiff {
		return none, false
	}
	if edge < e.cfg.Trading.MinEdge {
		return none, false
	}

	sizePct := kellySizePct(modelProb, price, side)
	stakeUSD := bankroll * sizePct

	candidateDate := dateStr
	if candidateDate == "" {
		candidateDate = localDate
	}
	remainingDaily := e.cfg.Trading.MaxDailyExposurePct*bankroll - exposure.openStakeOn(candidateDate)
	remainingCity := e.cfg.Trading.MaxCityExposurePct*bankroll - exposure.openStakeFor(city.Name, candidateDate)
	stakeUSD = minFloat(stakeUSD, maxFloat(0, remainingDaily), maxFloat(0, remainingCity))

	if stopForDay || stakeUSD <= 0.0001 {
		return none, false
	}

	marketURL := ""
	if event.Slug != "" {
		marketURL = polymarket.EventURL(event.Slug)
	}
	tempLabel := "tmax"
	if marketType == MarketTempMin {
		tempLabel = "tmin"
	}

	return candidate{
		trade: models.Trade{
			City:       city.Name,
			Station:    city.Station,
			Question:   question,
			MarketURL:  marketURL,
			EventDate:  candidateDate,
			Side:       side,
			EntryPrice: price,
			ModelProb:  modelProb,
			Edge:       edge,
			SizePct:    sizePct,
			StakeUSD:   stakeUSD,
			Status:     models.StatusOpen,
			Result:     models.ResultPending,
			Notes:      fmt.Sprintf("Forecast %s=%.1fC (Blended %d models)", tempLabel, forecastTemp, forecast.modelsUsed),
		},
		token: token,
	}, true
}

// questionProbability prices the question against a forecast value,
// trying the range, inequality and exact-value shapes in that order.
// Questions matching none of the shapes have no model.
func questionProbability(question string, forecastTemp float64) (float64, bool) {
	if low, high, ok := ParseRangeC(question); ok {
		return ProbTempInRange(forecastTemp, low, high, DefaultSigma), true
	}
	if value, op, ok := ParseInequalityC(question); ok {
		return ProbTempInequality(forecastTemp, value, op, DefaultSigma), true
	}
	if value, ok := ParseThresholdC(question); ok {
		return ProbTempEquals(forecastTemp, value, DefaultSigma), true
	}
	return 0, false
}

// applyCalibration shifts a raw model probability by the learned
// (city, market type) bias. Missing calibration rows contribute zero.
func (e *Engine) applyCalibration(city, marketType string, prob float64) float64 {
	row, err := e.store.Calibration(city, marketType)
	if err != nil {
		e.logger.Warn("Calibration lookup failed", zap.String("city", city), zap.Error(err))
		return prob
	}
	if row == nil {
		return prob
	}
	return clamp01(prob + row.Bias)
}

// placeLiveBuy mirrors a freshly opened paper position with a live CLOB
// order. Failures are recorded in the trade notes and never escalate.
func (e *Engine) placeLiveBuy(ctx context.Context, c *candidate) {
	if !e.cfg.Trading.Live || e.exchange == nil || c.token == "" {
		return
	}
	result := e.exchange.PlaceBuyOrder(ctx, c.token, c.trade.EntryPrice, c.trade.StakeUSD)
	note := fmt.Sprintf("Live order %s size=%.0f", result.OrderID, result.Size)
	if !result.Success {
		note = "Live order failed: " + result.Err
	}
	if _, err := e.store.UpdateTrade(c.trade.ID, map[string]interface{}{
		"notes": c.trade.Notes + " | " + note,
	}); err != nil {
		e.logger.Error("Failed to record live order note", zap.Uint("trade_id", c.trade.ID), zap.Error(err))
	}
}

func aliasMatches(question string, aliases []string) bool {
	q := strings.ToLower(question)
	for _, a := range aliases {
		if strings.Contains(q, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

func minFloat(a float64, rest ...float64) float64 {
	m := a
	for _, v := range rest {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
