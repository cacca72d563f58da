// Package marketdata decides when previously fetched market data is stale
// enough to justify a new call to the quote provider, and which sampling
// interval to request for a historical window. Everything here is pure and
// synchronous: the calendar tables are built once at construction and never
// mutated, so a single Service is safe for concurrent use.
package marketdata

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Session is a contiguous open-to-close interval within a trading day,
// expressed as local time-of-day in the exchange's timezone.
type Session struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// Calendar defines trading hours and trading days for an exchange
type Calendar struct {
	Code        string
	Name        string
	TimezoneStr string
	Timezone    *time.Location
	Sessions    []Session // chronological, non-overlapping
	TradingDays map[time.Weekday]bool
}

// Service provides exchange calendar lookups and the freshness policy
type Service struct {
	calendars  map[string]*Calendar
	byTimezone map[string]string // IANA timezone name -> representative exchange code
	log        zerolog.Logger
}

// NewService creates a new market data policy service
func NewService(log zerolog.Logger) *Service {
	s := &Service{
		calendars:  make(map[string]*Calendar),
		byTimezone: make(map[string]string),
		log:        log.With().Str("service", "marketdata").Logger(),
	}

	s.initializeCalendars()
	return s
}

// weekdaySet builds a trading-day set from a list of weekdays
func weekdaySet(days ...time.Weekday) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

// initializeCalendars sets up trading sessions for all supported exchanges
func (s *Service) initializeCalendars() {
	monToFri := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	sunToThu := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}

	// ============================================================
	// AMERICAS
	// ============================================================

	nyLoc, _ := time.LoadLocation("America/New_York")
	s.calendars["NYSE"] = &Calendar{
		Code:        "NYSE",
		Name:        "New York Stock Exchange",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	s.calendars["NASDAQ"] = &Calendar{
		Code:        "NASDAQ",
		Name:        "NASDAQ",
		TimezoneStr: "America/New_York",
		Timezone:    nyLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}
	s.calendars["NMS"] = s.calendars["NASDAQ"]
	s.calendars["NGM"] = s.calendars["NASDAQ"]

	torontoLoc, _ := time.LoadLocation("America/Toronto")
	s.calendars["TSX"] = &Calendar{
		Code:        "TSX",
		Name:        "Toronto Stock Exchange",
		TimezoneStr: "America/Toronto",
		Timezone:    torontoLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 16, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	saoLoc, _ := time.LoadLocation("America/Sao_Paulo")
	s.calendars["B3"] = &Calendar{
		Code:        "B3",
		Name:        "B3 - Brasil Bolsa Balcao",
		TimezoneStr: "America/Sao_Paulo",
		Timezone:    saoLoc,
		Sessions: []Session{
			{OpenHour: 10, OpenMinute: 0, CloseHour: 17, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	// ============================================================
	// EUROPE
	// ============================================================

	londonLoc, _ := time.LoadLocation("Europe/London")
	s.calendars["LSE"] = &Calendar{
		Code:        "LSE",
		Name:        "London Stock Exchange",
		TimezoneStr: "Europe/London",
		Timezone:    londonLoc,
		Sessions: []Session{
			{OpenHour: 8, OpenMinute: 0, CloseHour: 16, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	berlinLoc, _ := time.LoadLocation("Europe/Berlin")
	s.calendars["XETRA"] = &Calendar{
		Code:        "XETRA",
		Name:        "Deutsche Boerse XETRA",
		TimezoneStr: "Europe/Berlin",
		Timezone:    berlinLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}
	s.calendars["GER"] = s.calendars["XETRA"]
	s.calendars["FRA"] = s.calendars["XETRA"]

	parisLoc, _ := time.LoadLocation("Europe/Paris")
	s.calendars["EPA"] = &Calendar{
		Code:        "EPA",
		Name:        "Euronext Paris",
		TimezoneStr: "Europe/Paris",
		Timezone:    parisLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	amsLoc, _ := time.LoadLocation("Europe/Amsterdam")
	s.calendars["AMS"] = &Calendar{
		Code:        "AMS",
		Name:        "Euronext Amsterdam",
		TimezoneStr: "Europe/Amsterdam",
		Timezone:    amsLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	zurichLoc, _ := time.LoadLocation("Europe/Zurich")
	s.calendars["SIX"] = &Calendar{
		Code:        "SIX",
		Name:        "SIX Swiss Exchange",
		TimezoneStr: "Europe/Zurich",
		Timezone:    zurichLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	// ============================================================
	// ASIA-PACIFIC (lunch-break markets have two sessions per day)
	// ============================================================

	tokyoLoc, _ := time.LoadLocation("Asia/Tokyo")
	s.calendars["TSE"] = &Calendar{
		Code:        "TSE",
		Name:        "Tokyo Stock Exchange",
		TimezoneStr: "Asia/Tokyo",
		Timezone:    tokyoLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 12, OpenMinute: 30, CloseHour: 15, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	hkLoc, _ := time.LoadLocation("Asia/Hong_Kong")
	s.calendars["HKEX"] = &Calendar{
		Code:        "HKEX",
		Name:        "Hong Kong Stock Exchange",
		TimezoneStr: "Asia/Hong_Kong",
		Timezone:    hkLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 12, CloseMinute: 0},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 16, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}
	s.calendars["HKG"] = s.calendars["HKEX"]

	shanghaiLoc, _ := time.LoadLocation("Asia/Shanghai")
	s.calendars["SSE"] = &Calendar{
		Code:        "SSE",
		Name:        "Shanghai Stock Exchange",
		TimezoneStr: "Asia/Shanghai",
		Timezone:    shanghaiLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 30, CloseHour: 11, CloseMinute: 30},
			{OpenHour: 13, OpenMinute: 0, CloseHour: 15, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}
	s.calendars["SZSE"] = s.calendars["SSE"]

	singaporeLoc, _ := time.LoadLocation("Asia/Singapore")
	s.calendars["SGX"] = &Calendar{
		Code:        "SGX",
		Name:        "Singapore Exchange",
		TimezoneStr: "Asia/Singapore",
		Timezone:    singaporeLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 17, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	seoulLoc, _ := time.LoadLocation("Asia/Seoul")
	s.calendars["KRX"] = &Calendar{
		Code:        "KRX",
		Name:        "Korea Exchange",
		TimezoneStr: "Asia/Seoul",
		Timezone:    seoulLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 0, CloseHour: 15, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	mumbaiLoc, _ := time.LoadLocation("Asia/Kolkata")
	s.calendars["NSE"] = &Calendar{
		Code:        "NSE",
		Name:        "National Stock Exchange of India",
		TimezoneStr: "Asia/Kolkata",
		Timezone:    mumbaiLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30},
		},
		TradingDays: weekdaySet(monToFri...),
	}
	s.calendars["BSE"] = s.calendars["NSE"]

	sydneyLoc, _ := time.LoadLocation("Australia/Sydney")
	s.calendars["ASX"] = &Calendar{
		Code:        "ASX",
		Name:        "Australian Securities Exchange",
		TimezoneStr: "Australia/Sydney",
		Timezone:    sydneyLoc,
		Sessions: []Session{
			{OpenHour: 10, OpenMinute: 0, CloseHour: 16, CloseMinute: 0},
		},
		TradingDays: weekdaySet(monToFri...),
	}

	// ============================================================
	// MIDDLE EAST (Sunday-Thursday trading weeks)
	// ============================================================

	riyadhLoc, _ := time.LoadLocation("Asia/Riyadh")
	s.calendars["TADAWUL"] = &Calendar{
		Code:        "TADAWUL",
		Name:        "Saudi Exchange",
		TimezoneStr: "Asia/Riyadh",
		Timezone:    riyadhLoc,
		Sessions: []Session{
			{OpenHour: 10, OpenMinute: 0, CloseHour: 15, CloseMinute: 0},
		},
		TradingDays: weekdaySet(sunToThu...),
	}

	telAvivLoc, _ := time.LoadLocation("Asia/Jerusalem")
	s.calendars["TASE"] = &Calendar{
		Code:        "TASE",
		Name:        "Tel Aviv Stock Exchange",
		TimezoneStr: "Asia/Jerusalem",
		Timezone:    telAvivLoc,
		Sessions: []Session{
			{OpenHour: 9, OpenMinute: 59, CloseHour: 17, CloseMinute: 15},
		},
		TradingDays: weekdaySet(sunToThu...),
	}

	// Timezone fallback: several exchange codes share a timezone, so the
	// fallback picks one representative calendar per timezone.
	s.byTimezone = map[string]string{
		"America/New_York":  "NYSE",
		"America/Toronto":   "TSX",
		"America/Sao_Paulo": "B3",
		"Europe/London":     "LSE",
		"Europe/Berlin":     "XETRA",
		"Europe/Paris":      "EPA",
		"Europe/Amsterdam":  "AMS",
		"Europe/Zurich":     "SIX",
		"Asia/Tokyo":        "TSE",
		"Asia/Hong_Kong":    "HKEX",
		"Asia/Shanghai":     "SSE",
		"Asia/Singapore":    "SGX",
		"Asia/Seoul":        "KRX",
		"Asia/Kolkata":      "NSE",
		"Australia/Sydney":  "ASX",
		"Asia/Riyadh":       "TADAWUL",
		"Asia/Jerusalem":    "TASE",
	}

	s.log.Info().Int("calendars", len(s.calendars)).Msg("Exchange calendars initialized")
}

// ResolveCalendar looks up the calendar for an exchange code. The code is
// normalized to uppercase. When the code is unknown and a timezone hint is
// supplied, a representative calendar for that timezone is used instead.
// Returns false when no calendar can be resolved; callers must treat unknown
// exchanges as always eligible to fetch.
func (s *Service) ResolveCalendar(exchangeCode string, timezoneHint string) (*Calendar, bool) {
	if cal, ok := s.calendars[strings.ToUpper(strings.TrimSpace(exchangeCode))]; ok {
		return cal, true
	}

	if timezoneHint != "" {
		if code, ok := s.byTimezone[timezoneHint]; ok {
			return s.calendars[code], true
		}
	}

	return nil, false
}

// Calendars returns the unique configured calendars, for status reporting
func (s *Service) Calendars() []*Calendar {
	seen := make(map[string]bool)
	out := make([]*Calendar, 0, len(s.calendars))
	for _, cal := range s.calendars {
		if seen[cal.Code] {
			continue
		}
		seen[cal.Code] = true
		out = append(out, cal)
	}
	return out
}
