package scheduling

import (
	"strings"
	"time"
)

// availabilityKeywords mark an event title as an availability window.
var availabilityKeywords = []string{
	"availability", "available", "open", "slot", "free",
	"זמינות", "פתוח", "פנוי",
}

// Default working hours used when the day has no availability events.
const (
	defaultOpenHour  = 9
	defaultCloseHour = 18
)

// IsAvailabilityEvent classifies an event. The structured kind marker wins;
// otherwise the title is matched against the keyword list.
func IsAvailabilityEvent(ev CalendarEvent) bool {
	switch ev.Kind {
	case KindAvailability:
		return true
	case KindBooking:
		return false
	}
	title := strings.ToLower(ev.Summary)
	for _, kw := range availabilityKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// BuildWindows splits the day's events into availability windows and busy intervals.
// Windows keep input order and are neither merged nor deduplicated.
func BuildWindows(events []CalendarEvent, dayStart, dayEnd time.Time) ([]Window, []Interval) {
	var (
		windows []Window
		busy    []Interval
		marked  int
	)
	for _, ev := range events {
		if !IsAvailabilityEvent(ev) {
			if !ev.AllDay {
				busy = append(busy, Interval{Start: ev.Start, End: ev.End})
			}
			continue
		}
		marked++
		if ev.AllDay {
			windows = append(windows, Window{Start: dayStart, End: dayEnd})
			continue
		}
		start, end, ok := ClampInterval(ev.Start, ev.End, dayStart, dayEnd)
		if !ok {
			continue
		}
		windows = append(windows, Window{Start: start, End: end})
	}

	if marked == 0 {
		loc := dayStart.Location()
		y, m, d := dayStart.Date()
		windows = []Window{{
			Start: time.Date(y, m, d, defaultOpenHour, 0, 0, 0, loc),
			End:   time.Date(y, m, d, defaultCloseHour, 0, 0, 0, loc),
		}}
	}
	return windows, busy
}
