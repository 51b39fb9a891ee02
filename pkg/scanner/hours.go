package scanner

import (
	"fmt"
	"time"
)

// TradingHours is the daily window, inclusive on both ends, evaluated in a
// fixed location on weekdays only.
type TradingHours struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// ParseTradingHours reads "HH:MM" bounds and an IANA zone name.
func ParseTradingHours(start, end, zone string) (TradingHours, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return TradingHours{}, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	s, err := parseClock(start)
	if err != nil {
		return TradingHours{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return TradingHours{}, err
	}
	if e < s {
		return TradingHours{}, fmt.Errorf("trading end %s is before start %s", end, start)
	}
	return TradingHours{Start: s, End: e, Location: loc}, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", v, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Open reports whether t falls inside the trading window.
func (h TradingHours) Open(t time.Time) bool {
	local := t.In(h.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return sinceMidnight >= h.Start && sinceMidnight <= h.End
}

// String renders the window as "HH:MM - HH:MM".
func (h TradingHours) String() string {
	return fmt.Sprintf("%s - %s", formatClock(h.Start), formatClock(h.End))
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
