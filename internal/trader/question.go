package trader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Market types detected from question text. Only the two temperature
// types are tradable; the rest exist so the resolver can key calibration
// rows for anything it encounters.
const (
	MarketTempMax     = "temp_max"
	MarketTempMin     = "temp_min"
	MarketPrecipYesNo = "precip_yesno"
	MarketSnowYesNo   = "snow_yesno"
	MarketWindYesNo   = "wind_yesno"
)

// Inequality operators extracted from question text.
const (
	OpLE = "le"
	OpGE = "ge"
)

var (
	thresholdCRe  = regexp.MustCompile(`(?i)(-?\d+)\s*°?C`)
	thresholdFRe  = regexp.MustCompile(`(?i)(-?\d+)\s*°?F`)
	rangeCRe      = regexp.MustCompile(`(?i)(-?\d+)\s*[-–]\s*(-?\d+)\s*°?C`)
	rangeFRe      = regexp.MustCompile(`(?i)(-?\d+)\s*[-–]\s*(-?\d+)\s*°?F`)
	ineqLowCRe    = regexp.MustCompile(`(?i)(-?\d+)\s*°?C\s*(or\s+below|or\s+lower|or\s+less)`)
	ineqHighCRe   = regexp.MustCompile(`(?i)(-?\d+)\s*°?C\s*(or\s+higher|or\s+above|or\s+more)`)
	ineqLowFRe    = regexp.MustCompile(`(?i)(-?\d+)\s*°?F\s*(or\s+below|or\s+lower|or\s+less)`)
	ineqHighFRe   = regexp.MustCompile(`(?i)(-?\d+)\s*°?F\s*(or\s+higher|or\s+above|or\s+more)`)
	questionDayRe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\s+(\d{1,2})`)
)

var monthByPrefix = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// ParseThresholdC extracts a single temperature threshold from question
// text, converting Fahrenheit to Celsius.
func ParseThresholdC(question string) (float64, bool) {
	if m := thresholdCRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, true
	}
	if m := thresholdFRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return fahrenheitToCelsius(v), true
	}
	return 0, false
}

// ParseRangeC extracts a [low, high] temperature range from question
// text, converting Fahrenheit to Celsius.
func ParseRangeC(question string) (low, high float64, ok bool) {
	if m := rangeCRe.FindStringSubmatch(question); m != nil {
		low, _ = strconv.ParseFloat(m[1], 64)
		high, _ = strconv.ParseFloat(m[2], 64)
		return low, high, true
	}
	if m := rangeFRe.FindStringSubmatch(question); m != nil {
		low, _ = strconv.ParseFloat(m[1], 64)
		high, _ = strconv.ParseFloat(m[2], 64)
		return fahrenheitToCelsius(low), fahrenheitToCelsius(high), true
	}
	return 0, 0, false
}

// ParseInequalityC extracts an "or below" / "or above" condition from
// question text, converting Fahrenheit to Celsius.
func ParseInequalityC(question string) (valueC float64, op string, ok bool) {
	if m := ineqLowCRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, OpLE, true
	}
	if m := ineqHighCRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, OpGE, true
	}
	if m := ineqLowFRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return fahrenheitToCelsius(v), OpLE, true
	}
	if m := ineqHighFRe.FindStringSubmatch(question); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return fahrenheitToCelsius(v), OpGE, true
	}
	return 0, "", false
}

// DetectMarketType classifies a question; returns the empty string when
// it matches none of the known shapes.
func DetectMarketType(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "highest temperature"):
		return MarketTempMax
	case strings.Contains(q, "lowest temperature"):
		return MarketTempMin
	case strings.Contains(q, "rain") || strings.Contains(q, "precipitation"):
		return MarketPrecipYesNo
	case strings.Contains(q, "snow"):
		return MarketSnowYesNo
	case strings.Contains(q, "wind"):
		return MarketWindYesNo
	}
	return ""
}

// IsTemperatureQuestion reports whether the question concerns a daily
// temperature extreme. Only these markets are traded.
func IsTemperatureQuestion(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, "highest temperature") || strings.Contains(q, "lowest temperature")
}

// ParseDateFromQuestion extracts a month-name + day pattern from a
// question, resolving the year in the city's timezone. Returns the empty
// string when no date is present.
func ParseDateFromQuestion(question string, loc *time.Location, now time.Time) string {
	m := questionDayRe.FindStringSubmatch(question)
	if m == nil {
		return ""
	}

	month, ok := monthByPrefix[strings.ToLower(m[1])[:3]]
	if !ok {
		return ""
	}
	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 || day > 31 {
		return ""
	}

	year := now.In(loc).Year()
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// LocalDate formats the current calendar date in the given timezone.
func LocalDate(loc *time.Location, now time.Time) string {
	return now.In(loc).Format("2006-01-02")
}
