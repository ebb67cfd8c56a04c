package polymarket

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Event is one Gamma event: a question group with an end date and a set
// of binary markets.
type Event struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	EndDate string   `json:"endDate"`
	Closed  bool     `json:"closed"`
	Markets []Market `json:"markets"`
}

// Market is one binary market inside an event. Gamma serializes the
// outcome labels, prices and CLOB token ids as JSON-encoded strings;
// they are decoded here, at the provider boundary, and nowhere deeper.
type Market struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
	EndDate       string `json:"endDate"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
}

// OutcomeLabels decodes the market's outcome label array. A malformed
// field yields an empty slice, which callers treat as "no model".
func (m *Market) OutcomeLabels() []string {
	return decodeStringArray(m.Outcomes)
}

// TokenIDs decodes the market's CLOB token id array.
func (m *Market) TokenIDs() []string {
	return decodeStringArray(m.ClobTokenIDs)
}

// PriceList decodes the market's outcome price array, coercing numeric
// strings to floats.
func (m *Market) PriceList() []float64 {
	raw := decodeStringArray(m.OutcomePrices)
	prices := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			prices[i] = 0
			continue
		}
		prices[i] = v
	}
	return prices
}

// decodeStringArray parses a JSON array serialized as a string. Elements
// may be strings or numbers; both are normalized to strings.
func decodeStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var str string
		if err := json.Unmarshal(r, &str); err == nil {
			out = append(out, str)
			continue
		}
		var num json.Number
		if err := json.Unmarshal(r, &num); err == nil {
			out = append(out, num.String())
			continue
		}
		out = append(out, "")
	}
	return out
}

var eventSlugRe = regexp.MustCompile(`(?i)polymarket\.com/event/([^/?#]+)`)

// ExtractEventSlug pulls the event slug out of a stored market URL.
// Returns the empty string when the URL does not point at an event page.
func ExtractEventSlug(url string) string {
	m := eventSlugRe.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// EventURL builds the public event page URL for a slug.
func EventURL(slug string) string {
	return fmt.Sprintf("https://polymarket.com/event/%s", slug)
}
