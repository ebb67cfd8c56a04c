package polymarket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketFieldDecoding(t *testing.T) {
	m := &Market{
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.62","0.38"]`,
		ClobTokenIDs:  `["11111","22222"]`,
	}

	assert.Equal(t, []string{"Yes", "No"}, m.OutcomeLabels())
	assert.Equal(t, []string{"11111", "22222"}, m.TokenIDs())

	prices := m.PriceList()
	assert.InDelta(t, 0.62, prices[0], 1e-9)
	assert.InDelta(t, 0.38, prices[1], 1e-9)
}

func TestPriceListCoercesNumbers(t *testing.T) {
	// Gamma sometimes serializes prices as raw numbers inside the string.
	m := &Market{OutcomePrices: `[0.97, 0.03]`}
	prices := m.PriceList()
	assert.InDelta(t, 0.97, prices[0], 1e-9)
	assert.InDelta(t, 0.03, prices[1], 1e-9)
}

func TestDecodeStringArrayMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "not json", in: "Yes,No"},
		{name: "not an array", in: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Market{Outcomes: tt.in}
			assert.Empty(t, m.OutcomeLabels())
		})
	}
}

func TestExtractEventSlug(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain", url: "https://polymarket.com/event/london-temp-sep-1", want: "london-temp-sep-1"},
		{name: "with query", url: "https://polymarket.com/event/london-temp?tid=42", want: "london-temp"},
		{name: "with subpath", url: "https://polymarket.com/event/london-temp/market-1", want: "london-temp"},
		{name: "mixed case host", url: "https://Polymarket.com/event/london-temp", want: "london-temp"},
		{name: "not an event url", url: "https://polymarket.com/markets", want: ""},
		{name: "empty", url: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEventSlug(tt.url))
		})
	}
}

func TestEventURLRoundTrip(t *testing.T) {
	url := EventURL("london-temp-sep-1")
	assert.Equal(t, "https://polymarket.com/event/london-temp-sep-1", url)
	assert.Equal(t, "london-temp-sep-1", ExtractEventSlug(url))
}
