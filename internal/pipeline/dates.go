package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/kassandra/internal/contracts"
)

// ParseRange validates a YYYY-MM-DD range: start < end <= today
func ParseRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	s, err := time.Parse(contracts.DateLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date %q must be YYYY-MM-DD: %w", start, contracts.ErrInvalidRange)
	}
	e, err := time.Parse(contracts.DateLayout, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %q must be YYYY-MM-DD: %w", end, contracts.ErrInvalidRange)
	}
	if !s.Before(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date: %w", contracts.ErrInvalidRange)
	}
	if e.After(contracts.NormalizeDate(now)) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date cannot be in the future: %w", contracts.ErrInvalidRange)
	}
	return s, e, nil
}
