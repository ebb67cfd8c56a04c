package trader

import (
	"context"
	"sync"
	"time"

	"polymarket-weather-bot-go/internal/config"
	"polymarket-weather-bot-go/internal/meteo"
	"polymarket-weather-bot-go/internal/polymarket"
	"polymarket-weather-bot-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TickResult is the outcome of one full discovery → monitor → resolver
// cycle.
type TickResult struct {
	Discovery *DiscoveryResult `json:"discovery"`
	Monitor   *MonitorResult   `json:"monitor"`
	Resolver  *ResolveResult   `json:"resolver"`
}

// tickCall is one in-flight tick that concurrent requesters await.
type tickCall struct {
	done   chan struct{}
	result *TickResult
	err    error
}

// Engine is the trading decision engine. One tick runs the discovery,
// monitor and resolver phases sequentially to completion; concurrent
// tick requests coalesce into the in-flight tick instead of starting a
// second one.
type Engine struct {
	logger    *zap.Logger
	cfg       *config.Config
	store     *store.Store
	forecasts meteo.ClientInterface
	markets   polymarket.ClientInterface
	exchange  polymarket.TradingClientInterface

	UUID      string
	StartTime time.Time

	mu          sync.Mutex
	current     *tickCall
	lastTickAt  time.Time
	lastResult  *TickResult
	displayMode string
}

// NewEngine creates a new trading engine. exchange may be nil when live
// trading is disabled.
func NewEngine(logger *zap.Logger, cfg *config.Config, st *store.Store, forecasts meteo.ClientInterface, markets polymarket.ClientInterface, exchange polymarket.TradingClientInterface) *Engine {
	mode := "paper"
	if cfg.Trading.Live {
		mode = "live"
	}
	return &Engine{
		logger:      logger,
		cfg:         cfg,
		store:       st,
		forecasts:   forecasts,
		markets:     markets,
		exchange:    exchange,
		UUID:        uuid.New().String(),
		StartTime:   time.Now(),
		displayMode: mode,
	}
}

// Run starts the engine's tick loop. An initial tick fires immediately,
// then one per configured interval, until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.Trading.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting tick loop",
		zap.Duration("interval", interval),
		zap.Int("cities", len(e.cfg.Trading.Cities)),
		zap.String("mode", e.displayMode),
	)

	if _, err := e.Tick(ctx); err != nil {
		e.logger.Error("Startup tick failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading engine...")
			return
		case <-ticker.C:
			if _, err := e.Tick(ctx); err != nil {
				e.logger.Error("Tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one full cycle, or awaits the cycle already in flight.
func (e *Engine) Tick(ctx context.Context) (*TickResult, error) {
	e.mu.Lock()
	if e.current != nil {
		call := e.current
		e.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &tickCall{done: make(chan struct{})}
	e.current = call
	e.mu.Unlock()

	call.result, call.err = e.runTick(ctx)

	e.mu.Lock()
	e.current = nil
	if call.err == nil {
		e.lastTickAt = time.Now()
		e.lastResult = call.result
	}
	e.mu.Unlock()
	close(call.done)

	return call.result, call.err
}

// runTick executes the three phases in order. A phase error aborts the
// rest of the tick; per-city and per-instrument failures never reach
// this level.
func (e *Engine) runTick(ctx context.Context) (*TickResult, error) {
	now := time.Now()
	result := &TickResult{}
	var err error

	e.logger.Info("Trade discovery start")
	if result.Discovery, err = e.runDiscovery(ctx, now); err != nil {
		return nil, err
	}
	e.logger.Info("Trade discovery complete",
		zap.Int("opened_or_logged", result.Discovery.OpenedOrLogged),
		zap.Float64("bankroll", result.Discovery.Bankroll),
		zap.Bool("stop_for_day", result.Discovery.StopForDay),
	)

	e.logger.Info("Monitor start")
	if result.Monitor, err = e.runMonitor(ctx, now); err != nil {
		return nil, err
	}
	e.logger.Info("Monitor complete",
		zap.Int("updated", result.Monitor.Updated),
		zap.Int("switched", result.Monitor.Switched),
	)

	e.logger.Info("Resolver start")
	if result.Resolver, err = e.runResolver(ctx, now); err != nil {
		return nil, err
	}
	e.logger.Info("Resolver complete", zap.Int("resolved", result.Resolver.Resolved))

	return result, nil
}

// LastTick returns the completion time and result of the most recent
// successful tick.
func (e *Engine) LastTick() (time.Time, *TickResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTickAt, e.lastResult
}

// DisplayMode returns the dashboard display mode.
func (e *Engine) DisplayMode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayMode
}

// SetDisplayMode updates the dashboard display mode. The actual trading
// mode is fixed by configuration.
func (e *Engine) SetDisplayMode(mode string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayMode = mode
}

// Store exposes the record store for the API server.
func (e *Engine) Store() *store.Store {
	return e.store
}

// KillSwitch cancels every live order and marks all OPEN records SKIP.
func (e *Engine) KillSwitch(ctx context.Context) (cancelled int, skipped int64, err error) {
	if e.exchange != nil {
		orders, ordErr := e.exchange.OpenOrders(ctx)
		if ordErr != nil {
			e.logger.Error("Kill switch could not list live orders", zap.Error(ordErr))
		}
		for _, order := range orders {
			if order.ID == "" {
				continue
			}
			if cancelErr := e.exchange.CancelOrder(ctx, order.ID); cancelErr != nil {
				e.logger.Error("Kill switch cancel failed",
					zap.String("order_id", order.ID), zap.Error(cancelErr))
				continue
			}
			cancelled++
		}
	}

	skipped, err = e.store.MarkOpenSkipped("KILL switch " + time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return cancelled, 0, err
	}
	e.logger.Warn("Kill switch engaged",
		zap.Int("orders_cancelled", cancelled),
		zap.Int64("open_trades_skipped", skipped),
	)
	return cancelled, skipped, nil
}
