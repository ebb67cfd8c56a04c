package trader

import (
	"math"

	"polymarket-weather-bot-go/internal/models"
)

// Fractional-Kelly clamp bounds, as a fraction of bankroll per position.
const (
	minSizePct = 0.01
	maxSizePct = 0.08
)

// kellySizePct computes the half-Kelly stake fraction for a binary
// position. p is the model's win probability for the chosen side,
// 1/price - 1 the payout odds. The result is clamped to
// [minSizePct, maxSizePct].
func kellySizePct(modelProb, entryPrice float64, side string) float64 {
	p := modelProb
	if side == models.SideNo {
		p = 1 - modelProb
	}
	payoff := 1/entryPrice - 1
	kelly := (p*payoff - (1 - p)) / payoff
	halfKelly := kelly / 2
	return math.Max(minSizePct, math.Min(maxSizePct, halfKelly))
}
