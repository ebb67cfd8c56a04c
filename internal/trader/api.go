package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"polymarket-weather-bot-go/internal/models"

	"go.uber.org/zap"
)

// APIServer exposes the status/control surface consumed by the external
// dashboard.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(engine *Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.statusHandler)
	mux.HandleFunc("/api/trades", s.tradesHandler)
	mux.HandleFunc("/api/trades/", s.tradeHandler)
	mux.HandleFunc("/api/calibration", s.calibrationHandler)
	mux.HandleFunc("/api/summary", s.summaryHandler)
	mux.HandleFunc("/api/tick", s.tickHandler)
	mux.HandleFunc("/api/mode", s.modeHandler)
	mux.HandleFunc("/api/kill", s.killHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	bankroll, err := s.engine.Store().Bankroll(s.engine.cfg.Trading.BaseBankroll)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to compute bankroll")
		return
	}
	open, err := s.engine.Store().OpenTrades()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to count open trades")
		return
	}

	lastTickAt, _ := s.engine.LastTick()
	lastTick := ""
	if !lastTickAt.IsZero() {
		lastTick = lastTickAt.UTC().Format(time.RFC3339)
	}

	envMode := "paper"
	if s.engine.cfg.Trading.Live {
		envMode = "live"
	}

	status := struct {
		UUID        string  `json:"uuid"`
		TradingMode string  `json:"trading_mode"`
		EnvMode     string  `json:"env_trading_mode"`
		Bankroll    float64 `json:"bankroll"`
		OpenTrades  int     `json:"open_trades"`
		Uptime      int64   `json:"uptime"`
		LastTickAt  string  `json:"last_tick_at"`
	}{
		UUID:        s.engine.UUID,
		TradingMode: s.engine.DisplayMode(),
		EnvMode:     envMode,
		Bankroll:    bankroll,
		OpenTrades:  len(open),
		Uptime:      int64(time.Since(s.engine.StartTime).Seconds()),
		LastTickAt:  lastTick,
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *APIServer) tradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.Trade
	var err error

	if status := r.URL.Query().Get("status"); status != "" {
		trades, err = s.engine.Store().TradesByStatus(status)
	} else {
		trades, err = s.engine.Store().AllTrades()
	}
	if err != nil {
		s.logger.Error("Failed to get trades", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *APIServer) tradeHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/trades/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid trade id")
		return
	}
	trade, err := s.engine.Store().TradeByID(uint(id))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get trade")
		return
	}
	if trade == nil {
		s.writeError(w, http.StatusNotFound, "Trade not found")
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *APIServer) calibrationHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.Store().Calibrations()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to get calibration")
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *APIServer) summaryHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	daily, err := DailySummary(s.engine.Store(), now)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to build daily summary")
		return
	}
	rolling, err := Rolling(s.engine.Store(), 30, now)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to build rolling report")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"daily":   daily,
		"rolling": rolling,
	})
}

func (s *APIServer) tickHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	result, err := s.engine.Tick(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) modeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	mode := strings.ToLower(body.Mode)
	if mode != "paper" && mode != "live" {
		s.writeError(w, http.StatusBadRequest, `Mode must be "paper" or "live"`)
		return
	}
	s.engine.SetDisplayMode(mode)

	envMode := "paper"
	if s.engine.cfg.Trading.Live {
		envMode = "live"
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":               true,
		"trading_mode":     mode,
		"env_trading_mode": envMode,
		"note":             "Display mode updated. Actual trading mode is controlled by configuration.",
	})
}

func (s *APIServer) killHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	cancelled, skipped, err := s.engine.KillSwitch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                      true,
		"cancelled_count":         cancelled,
		"open_trades_marked_skip": skipped,
	})
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
