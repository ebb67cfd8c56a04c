package trader

import (
	"testing"

	"polymarket-weather-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildExposure(t *testing.T) {
	rows := []models.Trade{
		{City: "London", EventDate: "2026-09-01", Status: models.StatusOpen, StakeUSD: 4},
		{City: "London", EventDate: "2026-09-01", Status: models.StatusOpen, StakeUSD: 2},
		{City: "Dallas", EventDate: "2026-09-01", Status: models.StatusOpen, StakeUSD: 5},
		{City: "London", EventDate: "2026-09-02", Status: models.StatusSkip},
		{City: "Miami", EventDate: "2026-09-01", Status: models.StatusResolved, StakeUSD: 8},
		{City: "", EventDate: "2026-09-01", Status: models.StatusOpen, StakeUSD: 99}, // ignored
	}

	snap := buildExposure(rows)

	assert.True(t, snap.hasAnyRecord("London", "2026-09-01"))
	assert.True(t, snap.hasAnyRecord("London", "2026-09-02"))
	assert.False(t, snap.hasAnyRecord("London", "2026-09-03"))

	// SKIP rows count as records but not as positions.
	assert.True(t, snap.hasPosition("London", "2026-09-01"))
	assert.False(t, snap.hasPosition("London", "2026-09-02"))
	assert.True(t, snap.hasPosition("Miami", "2026-09-01"))

	// Only OPEN stake counts against the caps.
	assert.InDelta(t, 6.0, snap.openStakeFor("London", "2026-09-01"), 1e-9)
	assert.InDelta(t, 0.0, snap.openStakeFor("Miami", "2026-09-01"), 1e-9)
	assert.InDelta(t, 11.0, snap.openStakeOn("2026-09-01"), 1e-9)
	assert.InDelta(t, 0.0, snap.openStakeOn("2026-09-02"), 1e-9)
}
