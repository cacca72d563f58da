package marketdata

import (
	"fmt"
	"time"
)

// Policy thresholds. These cap quote-provider calls: at most one refresh per
// 15 minutes while a market trades, and a single post-close catch-up fetch
// per session once an hour has passed since the last intraday fetch.
const (
	// IntradayStaleness is how old data may get during an open session
	// before a refresh is warranted.
	IntradayStaleness = 15 * time.Minute

	// PostCloseCatchup is how long after the last intraday fetch a single
	// closing-price refresh is attempted while the market is closed.
	PostCloseCatchup = 60 * time.Minute
)

// Decision reason codes
const (
	ReasonForced               = "forced"
	ReasonUnknownMarket        = "unknown market, fetching permissively"
	ReasonNonTradingDay        = "non-trading day"
	ReasonNoPreviousData       = "no previous data"
	ReasonStaleDuringSession   = "stale during session"
	ReasonFreshDuringSession   = "recent fetch during session"
	ReasonPostCloseDataCurrent = "already have post-close data"
	ReasonPostCloseCatchup     = "post-close catch-up"
	ReasonPostCloseRecentFetch = "recent post-close fetch already done"
)

// Query describes a single freshness decision request
type Query struct {
	ExchangeCode string
	TimezoneHint string     // optional explicit timezone override
	LastUpdated  *time.Time // nil when no data has ever been fetched
	ForceRefresh bool
}

// NewQuery builds a freshness query. A non-nil zero LastUpdated is rejected
// rather than silently treated as "no previous data"; pass nil for that.
func NewQuery(exchangeCode, timezoneHint string, lastUpdated *time.Time, forceRefresh bool) (Query, error) {
	if lastUpdated != nil && lastUpdated.IsZero() {
		return Query{}, fmt.Errorf("lastUpdated is set but zero for exchange %q", exchangeCode)
	}
	return Query{
		ExchangeCode: exchangeCode,
		TimezoneHint: timezoneHint,
		LastUpdated:  lastUpdated,
		ForceRefresh: forceRefresh,
	}, nil
}

// Decision is the result of a freshness check
type Decision struct {
	ShouldFetch   bool       `json:"should_fetch"`
	Reason        string     `json:"reason"`
	NextFetchTime *time.Time `json:"next_fetch_time,omitempty"`
}

func fetchNow(reason string) Decision {
	return Decision{ShouldFetch: true, Reason: reason}
}

func waitUntil(reason string, next time.Time, ok bool) Decision {
	d := Decision{ShouldFetch: false, Reason: reason}
	if ok {
		d.NextFetchTime = &next
	}
	return d
}

// ShouldFetchData decides whether a refresh from the quote provider should be
// attempted now. The branches are evaluated in a fixed order: force, unknown
// market, non-trading day, no previous data, open-market staleness, then the
// closed-market post-close rules. "now" is captured once so day-boundary
// checks stay consistent within the call.
func (s *Service) ShouldFetchData(q Query) Decision {
	return s.ShouldFetchDataAt(q, time.Now())
}

// ShouldFetchDataAt evaluates the policy at an explicit instant
func (s *Service) ShouldFetchDataAt(q Query, now time.Time) Decision {
	if q.ForceRefresh {
		return fetchNow(ReasonForced)
	}

	cal, ok := s.ResolveCalendar(q.ExchangeCode, q.TimezoneHint)
	if !ok {
		// Refusing to fetch for an unrecognized market would silently
		// break data loading, so unknown exchanges are always eligible.
		s.log.Debug().Str("exchange", q.ExchangeCode).Msg("Unknown exchange, permissive fetch")
		return fetchNow(ReasonUnknownMarket)
	}

	if !cal.IsTradingDay(now) {
		next, hasNext := cal.NextMarketOpen(now)
		return waitUntil(ReasonNonTradingDay, next, hasNext)
	}

	if q.LastUpdated == nil {
		return fetchNow(ReasonNoPreviousData)
	}

	elapsed := now.Sub(*q.LastUpdated)

	if cal.IsMarketOpen(now) {
		if elapsed >= IntradayStaleness {
			return fetchNow(ReasonStaleDuringSession)
		}
		return waitUntil(ReasonFreshDuringSession, q.LastUpdated.Add(IntradayStaleness), true)
	}

	// Market closed on a trading day: allow a single catch-up fetch for the
	// closing prices, then wait for the next open.
	next, hasNext := cal.NextMarketOpen(now)

	if lastClose, ok := cal.LastMarketClose(now); ok && q.LastUpdated.After(lastClose) {
		return waitUntil(ReasonPostCloseDataCurrent, next, hasNext)
	}

	if elapsed >= PostCloseCatchup {
		return fetchNow(ReasonPostCloseCatchup)
	}

	return waitUntil(ReasonPostCloseRecentFetch, next, hasNext)
}
