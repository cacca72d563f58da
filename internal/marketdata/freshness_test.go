package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestNewQuery_RejectsZeroLastUpdated(t *testing.T) {
	_, err := NewQuery("NYSE", "", &time.Time{}, false)
	assert.Error(t, err)
}

func TestNewQuery_NilLastUpdatedIsValid(t *testing.T) {
	q, err := NewQuery("NYSE", "", nil, false)
	require.NoError(t, err)
	assert.Nil(t, q.LastUpdated)
}

func TestShouldFetch_ForceRefreshAlwaysFetches(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Sunday with fresh data: every other branch would say no
	now := localTime(nyse, 2024, time.June, 16, 12, 0)
	q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(now.Add(-time.Minute)), ForceRefresh: true}

	d := svc.ShouldFetchDataAt(q, now)
	assert.True(t, d.ShouldFetch)
	assert.Equal(t, ReasonForced, d.Reason)
}

func TestShouldFetch_UnknownExchangeIsPermissive(t *testing.T) {
	svc := newTestService(t)

	now := time.Date(2024, time.June, 16, 12, 0, 0, 0, time.UTC)
	q := Query{ExchangeCode: "SOME_UNKNOWN_MIC", LastUpdated: ptr(now.Add(-time.Minute))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.True(t, d.ShouldFetch)
	assert.Equal(t, ReasonUnknownMarket, d.Reason)
	assert.Nil(t, d.NextFetchTime)
}

func TestShouldFetch_NonTradingDay(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Saturday
	now := localTime(nyse, 2024, time.June, 15, 12, 0)
	q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(now.Add(-24 * time.Hour))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.False(t, d.ShouldFetch)
	assert.Equal(t, ReasonNonTradingDay, d.Reason)
	require.NotNil(t, d.NextFetchTime)
	assert.Equal(t, localTime(nyse, 2024, time.June, 17, 9, 30), *d.NextFetchTime)
}

func TestShouldFetch_NoPreviousData(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	now := localTime(nyse, 2024, time.June, 12, 11, 0)
	q := Query{ExchangeCode: "NYSE"}

	d := svc.ShouldFetchDataAt(q, now)
	assert.True(t, d.ShouldFetch)
	assert.Equal(t, ReasonNoPreviousData, d.Reason)
}

func TestShouldFetch_IntradayStalenessBoundary(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	now := localTime(nyse, 2024, time.June, 12, 11, 0)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"14 minutes old", 14 * time.Minute, false},
		{"exactly 15 minutes", 15 * time.Minute, true},
		{"16 minutes old", 16 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(now.Add(-tt.elapsed))}
			d := svc.ShouldFetchDataAt(q, now)
			assert.Equal(t, tt.want, d.ShouldFetch)
		})
	}
}

func TestShouldFetch_FreshDuringSession(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Wednesday 10:00 with a fetch at 09:50: wait until 10:05
	now := localTime(nyse, 2024, time.June, 12, 10, 0)
	lastUpdated := localTime(nyse, 2024, time.June, 12, 9, 50)
	q := Query{ExchangeCode: "NASDAQ", LastUpdated: ptr(lastUpdated)}

	d := svc.ShouldFetchDataAt(q, now)
	assert.False(t, d.ShouldFetch)
	assert.Equal(t, ReasonFreshDuringSession, d.Reason)
	require.NotNil(t, d.NextFetchTime)
	assert.Equal(t, localTime(nyse, 2024, time.June, 12, 10, 5), *d.NextFetchTime)
}

func TestShouldFetch_PostCloseDataCurrent(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Wednesday 20:00, last fetch at 16:30 (after the 16:00 close). No
	// amount of elapsed time justifies another fetch before the next open.
	now := localTime(nyse, 2024, time.June, 12, 20, 0)
	q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(localTime(nyse, 2024, time.June, 12, 16, 30))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.False(t, d.ShouldFetch)
	assert.Equal(t, ReasonPostCloseDataCurrent, d.Reason)
	require.NotNil(t, d.NextFetchTime)
	assert.Equal(t, localTime(nyse, 2024, time.June, 13, 9, 30), *d.NextFetchTime)
}

func TestShouldFetch_PostCloseCatchup(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Last fetch during the session, 61+ minutes ago, market now closed:
	// one catch-up fetch for the closing prices.
	now := localTime(nyse, 2024, time.June, 12, 17, 0)
	q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(localTime(nyse, 2024, time.June, 12, 15, 30))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.True(t, d.ShouldFetch)
	assert.Equal(t, ReasonPostCloseCatchup, d.Reason)
}

func TestShouldFetch_PostCloseRecentFetch(t *testing.T) {
	svc := newTestService(t)
	nyse := mustCalendar(t, svc, "NYSE")

	// Market closed at 16:00, last fetch 15:45, now 16:30: elapsed is
	// under an hour, so the catch-up hasn't come due yet.
	now := localTime(nyse, 2024, time.June, 12, 16, 30)
	q := Query{ExchangeCode: "NYSE", LastUpdated: ptr(localTime(nyse, 2024, time.June, 12, 15, 45))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.False(t, d.ShouldFetch)
	assert.Equal(t, ReasonPostCloseRecentFetch, d.Reason)
	require.NotNil(t, d.NextFetchTime)
	assert.Equal(t, localTime(nyse, 2024, time.June, 13, 9, 30), *d.NextFetchTime)
}

func TestShouldFetch_TimezoneHintFallback(t *testing.T) {
	svc := newTestService(t)
	tse := mustCalendar(t, svc, "TSE")

	// Unknown code but a known timezone: the representative calendar is
	// used, so a Saturday in Tokyo is a non-trading day.
	now := localTime(tse, 2024, time.June, 15, 10, 0)
	q := Query{ExchangeCode: "SOME_UNKNOWN_MIC", TimezoneHint: "Asia/Tokyo", LastUpdated: ptr(now.Add(-time.Hour))}

	d := svc.ShouldFetchDataAt(q, now)
	assert.False(t, d.ShouldFetch)
	assert.Equal(t, ReasonNonTradingDay, d.Reason)
}
