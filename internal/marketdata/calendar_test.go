package marketdata

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(log)
}

func TestResolveCalendar_KnownCode(t *testing.T) {
	svc := newTestService(t)

	cal, ok := svc.ResolveCalendar("NYSE", "")
	require.True(t, ok)
	assert.Equal(t, "NYSE", cal.Code)
	assert.Equal(t, "America/New_York", cal.TimezoneStr)
}

func TestResolveCalendar_NormalizesCase(t *testing.T) {
	svc := newTestService(t)

	cal, ok := svc.ResolveCalendar(" nasdaq ", "")
	require.True(t, ok)
	assert.Equal(t, "NASDAQ", cal.Code)
}

func TestResolveCalendar_AliasCodesShareCalendar(t *testing.T) {
	svc := newTestService(t)

	nasdaq, ok := svc.ResolveCalendar("NASDAQ", "")
	require.True(t, ok)
	nms, ok := svc.ResolveCalendar("NMS", "")
	require.True(t, ok)
	assert.Same(t, nasdaq, nms)
}

func TestResolveCalendar_TimezoneFallback(t *testing.T) {
	svc := newTestService(t)

	cal, ok := svc.ResolveCalendar("SOME_UNKNOWN_MIC", "Asia/Tokyo")
	require.True(t, ok)
	assert.Equal(t, "TSE", cal.Code)
}

func TestResolveCalendar_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, ok := svc.ResolveCalendar("SOME_UNKNOWN_MIC", "")
	assert.False(t, ok)

	_, ok = svc.ResolveCalendar("SOME_UNKNOWN_MIC", "Mars/Olympus_Mons")
	assert.False(t, ok)
}

func TestCalendarInvariants(t *testing.T) {
	svc := newTestService(t)

	for _, cal := range svc.Calendars() {
		assert.NotNil(t, cal.Timezone, "calendar %s has no timezone", cal.Code)
		assert.NotEmpty(t, cal.TradingDays, "calendar %s has no trading days", cal.Code)
		assert.NotEmpty(t, cal.Sessions, "calendar %s has no sessions", cal.Code)

		// Sessions must be chronological and non-overlapping
		for i := 1; i < len(cal.Sessions); i++ {
			prevClose := cal.Sessions[i-1].CloseHour*60 + cal.Sessions[i-1].CloseMinute
			nextOpen := cal.Sessions[i].OpenHour*60 + cal.Sessions[i].OpenMinute
			assert.Less(t, prevClose, nextOpen, "calendar %s sessions overlap", cal.Code)
		}
	}
}
