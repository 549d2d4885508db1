package contracts

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire format for dates (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// PriceBar is one daily OHLCV bar
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// NormalizeDate strips the time-of-day and the zone tag from t.
// The wall-clock date is kept as-is (no shift into UTC), so a bar stamped
// 2024-01-02T09:30-05:00 maps to 2024-01-02.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey returns the YYYY-MM-DD key of t after normalization
func DateKey(t time.Time) string {
	return NormalizeDate(t).Format(DateLayout)
}

// TradingCalendar is the ordered set of dates on which the asset traded.
// ⭐ SSOT: 모든 정렬(alignment)은 이 캘린더 기준
type TradingCalendar struct {
	dates []time.Time
	index map[string]int
}

// NewTradingCalendar builds a calendar from dates, normalizing, sorting and de-duplicating them
func NewTradingCalendar(dates []time.Time) TradingCalendar {
	normalized := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		normalized = append(normalized, NormalizeDate(d))
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })

	cal := TradingCalendar{index: make(map[string]int, len(normalized))}
	for _, d := range normalized {
		key := d.Format(DateLayout)
		if _, exists := cal.index[key]; exists {
			continue
		}
		cal.index[key] = len(cal.dates)
		cal.dates = append(cal.dates, d)
	}
	return cal
}

// Len returns the number of trading dates
func (c TradingCalendar) Len() int {
	return len(c.dates)
}

// Dates returns a copy of the ordered dates
func (c TradingCalendar) Dates() []time.Time {
	out := make([]time.Time, len(c.dates))
	copy(out, c.dates)
	return out
}

// At returns the i-th trading date
func (c TradingCalendar) At(i int) time.Time {
	return c.dates[i]
}

// IndexOf returns the position of date in the calendar
func (c TradingCalendar) IndexOf(date time.Time) (int, bool) {
	i, ok := c.index[DateKey(date)]
	return i, ok
}

// Contains reports whether date is a trading date
func (c TradingCalendar) Contains(date time.Time) bool {
	_, ok := c.IndexOf(date)
	return ok
}

// Last returns the most recent trading date
func (c TradingCalendar) Last() (time.Time, error) {
	if len(c.dates) == 0 {
		return time.Time{}, fmt.Errorf("empty calendar: %w", ErrInsufficientHistory)
	}
	return c.dates[len(c.dates)-1], nil
}
