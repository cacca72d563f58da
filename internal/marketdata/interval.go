package marketdata

import "time"

// Interval is a sampling granularity for historical price data
type Interval string

// Supported intervals, finest to coarsest. The string values match what the
// quote provider accepts, so they can be passed through unchanged.
const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval60m Interval = "60m"
	Interval1d  Interval = "1d"
)

// intervalRule pairs an interval with the provider-imposed constraints it
// must satisfy: a maximum look-back from now to the window start, and a
// window-length range (minWindow exclusive, maxWindow inclusive). All must
// hold for the interval to be chosen.
type intervalRule struct {
	interval    Interval
	maxLookback time.Duration
	minWindow   time.Duration
	maxWindow   time.Duration
}

const day = 24 * time.Hour

// intervalRules are tested in order; the first match wins, so finer
// granularities are preferred whenever the provider would accept them.
var intervalRules = []intervalRule{
	{Interval1m, 7 * day, 0, time.Hour},
	{Interval5m, 60 * day, 0, 1 * day},
	{Interval15m, 60 * day, 1 * day, 3 * day},
	{Interval30m, 60 * day, 3 * day, 7 * day},
	{Interval60m, 730 * day, 7 * day, 60 * day},
}

// SelectInterval picks the finest sampling interval the quote provider will
// serve for the requested window. Providers refuse fine granularity both for
// long windows and for windows starting too far in the past, so each rule
// checks the window length and the look-back from now. Daily data has no
// constraints and is the universal fallback.
func SelectInterval(windowStart, windowEnd, now time.Time) Interval {
	lookback := now.Sub(windowStart)
	window := windowEnd.Sub(windowStart)

	for _, rule := range intervalRules {
		if lookback <= rule.maxLookback && window > rule.minWindow && window <= rule.maxWindow {
			return rule.interval
		}
	}

	return Interval1d
}
