package marketdata

import "time"

// searchHorizonDays bounds the day-by-day scan in NextMarketOpen and
// LastMarketClose. Any calendar with a non-empty trading-day set qualifies
// within 7 days, but the bound is enforced rather than assumed.
const searchHorizonDays = 7

// IsTradingDay reports whether the exchange trades on the weekday of t,
// evaluated in the calendar's local timezone.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.Timezone)
	return c.TradingDays[local.Weekday()]
}

// IsMarketOpen reports whether the local time-of-day of t falls inside any
// of the calendar's sessions (inclusive bounds). It deliberately does not
// check IsTradingDay: callers combine both checks where needed. A time
// between two sessions of a lunch-break market is closed.
func (c *Calendar) IsMarketOpen(t time.Time) bool {
	local := t.In(c.Timezone)
	currentMinutes := local.Hour()*60 + local.Minute()

	for _, session := range c.Sessions {
		openMinutes := session.OpenHour*60 + session.OpenMinute
		closeMinutes := session.CloseHour*60 + session.CloseMinute

		if currentMinutes >= openMinutes && currentMinutes <= closeMinutes {
			return true
		}
	}

	return false
}

// sessionTime anchors a session time-of-day on the given local day
func sessionTime(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
}

// NextMarketOpen returns the next instant the market opens at or after now.
// If today is a trading day and now is before today's first session open,
// today's open is returned. The scan is bounded to searchHorizonDays; the
// second return value is false when no trading day is found within it.
func (c *Calendar) NextMarketOpen(now time.Time) (time.Time, bool) {
	if len(c.Sessions) == 0 {
		return time.Time{}, false
	}

	local := now.In(c.Timezone)
	first := c.Sessions[0]

	for days := 0; days <= searchHorizonDays; days++ {
		candidate := local.AddDate(0, 0, days)
		if !c.IsTradingDay(candidate) {
			continue
		}

		open := sessionTime(candidate, first.OpenHour, first.OpenMinute, c.Timezone)
		if days == 0 && !local.Before(open) {
			// Today's open has already passed
			continue
		}
		return open, true
	}

	return time.Time{}, false
}

// LastMarketClose returns the most recent instant the market closed at or
// before now, mirroring NextMarketOpen: if today is a trading day and
// today's last session close has already passed, today's close is returned.
func (c *Calendar) LastMarketClose(now time.Time) (time.Time, bool) {
	if len(c.Sessions) == 0 {
		return time.Time{}, false
	}

	local := now.In(c.Timezone)
	last := c.Sessions[len(c.Sessions)-1]

	for days := 0; days <= searchHorizonDays; days++ {
		candidate := local.AddDate(0, 0, -days)
		if !c.IsTradingDay(candidate) {
			continue
		}

		close := sessionTime(candidate, last.CloseHour, last.CloseMinute, c.Timezone)
		if days == 0 && local.Before(close) {
			// Today's close has not happened yet
			continue
		}
		return close, true
	}

	return time.Time{}, false
}
