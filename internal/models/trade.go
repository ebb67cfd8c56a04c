package models

import "gorm.io/gorm"

// Position lifecycle states. SKIP and RESOLVED are terminal; STOP and
// SWITCHED legs still await settlement against the underlying market.
const (
	StatusOpen     = "OPEN"
	StatusSkip     = "SKIP"
	StatusStop     = "STOP"
	StatusSwitched = "SWITCHED"
	StatusResolved = "RESOLVED"
)

// Settlement results. Result stays PENDING until the resolver declares a
// terminal WIN or LOSS; it is tracked independently of Status.
const (
	ResultPending = "PENDING"
	ResultWin     = "WIN"
	ResultLoss    = "LOSS"
)

// Sides of a binary market. An empty Side means no position was taken
// (SKIP rows).
const (
	SideYes = "YES"
	SideNo  = "NO"
)

// Trade represents one position lifecycle event. A switch closes the old
// row and creates a new one rather than mutating the position in place,
// so the full audit history is preserved.
type Trade struct {
	gorm.Model
	City       string  `gorm:"index" json:"city"`
	Station    string  `json:"station"`
	Question   string  `json:"question"`
	MarketURL  string  `json:"market_url"`
	EventDate  string  `gorm:"index" json:"event_date"` // local calendar date, YYYY-MM-DD
	Side       string  `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	ModelProb  float64 `json:"model_prob"`
	Edge       float64 `json:"edge"`
	SizePct    float64 `json:"size_pct"`
	StakeUSD   float64 `json:"stake_usd"`
	Status     string  `gorm:"index" json:"status"`
	Result     string  `gorm:"index" json:"result"`
	PnL        float64 `gorm:"column:pnl" json:"pnl"`
	Notes      string  `json:"notes"`
	ResolvedAt string  `json:"resolved_at"` // RFC3339, empty until resolved
}
