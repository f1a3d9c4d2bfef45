package domain

import "time"

// TimeRange restricts search results by token age.
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	RangeAll TimeRange = "all"
)

// IsValid checks if the time range is a valid value.
func (t TimeRange) IsValid() bool {
	switch t {
	case Range24h, Range7d, Range30d, RangeAll:
		return true
	}
	return false
}

// Cutoff returns the oldest acceptable mint time (unix seconds) for the
// range, or 0 when the range does not constrain age.
func (t TimeRange) Cutoff(now time.Time) int64 {
	switch t {
	case Range24h:
		return now.Add(-24 * time.Hour).Unix()
	case Range7d:
		return now.Add(-7 * 24 * time.Hour).Unix()
	case Range30d:
		return now.Add(-30 * 24 * time.Hour).Unix()
	default:
		return 0
	}
}

// DefaultResultCap bounds the number of records returned by one search.
const DefaultResultCap = 50

// SearchOptions controls one search call.
type SearchOptions struct {
	TimeRange       TimeRange     // default RangeAll
	ResultCap       int           // default DefaultResultCap
	FreshnessWindow time.Duration // default DefaultFreshnessWindow
}

// Normalize fills zero values with defaults.
func (o SearchOptions) Normalize() SearchOptions {
	if !o.TimeRange.IsValid() {
		o.TimeRange = RangeAll
	}
	if o.ResultCap <= 0 {
		o.ResultCap = DefaultResultCap
	}
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = DefaultFreshnessWindow
	}
	return o
}
