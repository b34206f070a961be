package service

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format. Dates in this layout
// sort lexicographically in chronological order.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingDates
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Price is the derived cost of a booking.
type Price struct {
	Days        int
	PricePerDay float64
	Total       float64
}

// Quote computes the whole-day duration and total price of renting for the
// range at perDay. Ranges shorter than one day are rejected.
func Quote(rng DateRange, perDay float64) (Price, error) {
	if perDay < 0 || math.IsNaN(perDay) {
		return Price{}, ErrInvalidRate
	}

	days := int(math.Ceil(float64(rng.end.Sub(rng.start)) / float64(day)))
	if days < 1 {
		return Price{}, fmt.Errorf("%w: booking must last at least one day", ErrInvalidDateRange)
	}

	return Price{
		Days:        days,
		PricePerDay: perDay,
		Total:       float64(days) * perDay,
	}, nil
}
