// Package timeref resolves user-supplied timestamp lists into the canonical
// UTC time array used as the forecast batch dimension, and converts between
// time.Time and the numeric axis encoding (hours since the Unix epoch).
package timeref

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmpty is returned when a run is given no initialization times.
var ErrEmpty = errors.New("timeref: time list is empty")

// Accepted layouts, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse resolves a list of timestamp strings into UTC times. The list must
// be non-empty and every entry must match one of the accepted layouts.
func Parse(raw []string) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	times := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := parseOne(s)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return times, nil
}

func parseOne(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timeref: cannot parse timestamp %q", s)
}

// Hours encodes a time as fractional hours since the Unix epoch, the
// numeric representation used on the time axis.
func Hours(t time.Time) float64 {
	return float64(t.UnixMilli()) / float64(time.Hour/time.Millisecond)
}

// FromHours decodes a time-axis value back into a UTC time.
func FromHours(h float64) time.Time {
	ms := int64(h * float64(time.Hour/time.Millisecond))
	return time.UnixMilli(ms).UTC()
}

// LeadHours encodes a lead-time offset as fractional hours, the numeric
// representation used on the lead-time axis.
func LeadHours(d time.Duration) float64 {
	return d.Hours()
}
