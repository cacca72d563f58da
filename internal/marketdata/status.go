package marketdata

import "time"

// MarketStatus represents the current state of a market
type MarketStatus struct {
	Exchange   string     `json:"exchange"`
	Name       string     `json:"name"`
	Timezone   string     `json:"timezone"`
	TradingDay bool       `json:"trading_day"`
	Open       bool       `json:"open"`
	NextOpen   *time.Time `json:"next_open,omitempty"`
	LastClose  *time.Time `json:"last_close,omitempty"`
}

// GetMarketStatus returns the status of one exchange at the given instant.
// The second return value is false for unknown exchange codes.
func (s *Service) GetMarketStatus(exchangeCode string, now time.Time) (MarketStatus, bool) {
	cal, ok := s.ResolveCalendar(exchangeCode, "")
	if !ok {
		return MarketStatus{}, false
	}

	tradingDay := cal.IsTradingDay(now)
	status := MarketStatus{
		Exchange:   cal.Code,
		Name:       cal.Name,
		Timezone:   cal.TimezoneStr,
		TradingDay: tradingDay,
		// Open requires both checks: IsMarketOpen alone only tests
		// time-of-day membership within sessions.
		Open: tradingDay && cal.IsMarketOpen(now),
	}

	if next, ok := cal.NextMarketOpen(now); ok {
		status.NextOpen = &next
	}
	if last, ok := cal.LastMarketClose(now); ok {
		status.LastClose = &last
	}

	return status, true
}

// GetAllMarketStatuses returns the status of every configured market
func (s *Service) GetAllMarketStatuses(now time.Time) []MarketStatus {
	cals := s.Calendars()
	statuses := make([]MarketStatus, 0, len(cals))
	for _, cal := range cals {
		if status, ok := s.GetMarketStatus(cal.Code, now); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
