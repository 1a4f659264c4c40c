package scheduling

import (
	"encoding/json"
	"time"
)

// OffsetLayout renders timestamps with an explicit numeric UTC offset.
// time.RFC3339 would print UTC as "Z", which breaks local-day grouping on clients.
const OffsetLayout = "2006-01-02T15:04:05-07:00"

// DateLayout is the calendar date accepted by the availability query.
const DateLayout = "2006-01-02"

// Event kinds stored in the private extended property of calendar events.
const (
	KindProperty     = "trainer-scheduler-kind"
	KindAvailability = "availability"
	KindBooking      = "booking"
)

// CalendarEvent is an event read from the trainer's calendar.
type CalendarEvent struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	// AllDay events carry a date-only start/end; Start and End are local midnights.
	AllDay bool
	Kind   string
}

// Window is an open availability interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Interval is a busy interval [Start, End) used only for exclusion.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a bookable candidate.
type Slot struct {
	Start time.Time
	End   time.Time
}

type slotJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		Start: s.Start.Format(OffsetLayout),
		End:   s.End.Format(OffsetLayout),
	})
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var raw slotJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	start, err := time.Parse(time.RFC3339, raw.Start)
	if err != nil {
		return err
	}
	end, err := time.Parse(time.RFC3339, raw.End)
	if err != nil {
		return err
	}
	s.Start, s.End = start, end
	return nil
}

// BookingRequest is a confirmed slot plus the client's contact details.
type BookingRequest struct {
	TrainerEmail string
	ClientName   string
	ClientEmail  string
	ClientPhone  string
	Notes        string
	Start        time.Time
	End          time.Time
	Service      Service
}

// Receipt is returned once the booking event exists in the calendar.
type Receipt struct {
	EventID   string
	HTMLLink  string
	StartTime time.Time
	EndTime   time.Time
}

type receiptJSON struct {
	EventID   string `json:"eventId"`
	HTMLLink  string `json:"htmlLink"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (r Receipt) MarshalJSON() ([]byte, error) {
	return json.Marshal(receiptJSON{
		EventID:   r.EventID,
		HTMLLink:  r.HTMLLink,
		StartTime: r.StartTime.Format(OffsetLayout),
		EndTime:   r.EndTime.Format(OffsetLayout),
	})
}

// Reminder is a calendar reminder override.
type Reminder struct {
	Method  string
	Minutes int64
}

// EventDraft is the booking event handed to the calendar gateway.
type EventDraft struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Reminders   []Reminder
	Kind        string
}

// InsertedEvent holds the canonical fields of a created event.
type InsertedEvent struct {
	ID       string
	HTMLLink string
	Start    time.Time
	End      time.Time
}

type NotificationKind string

const (
	NotifyTrainer NotificationKind = "trainer"
	NotifyClient  NotificationKind = "client"
)

// Notification describes one best-effort message about a booking.
type Notification struct {
	Kind         NotificationKind
	TrainerEmail string
	ClientName   string
	ClientEmail  string
	ClientPhone  string
	Notes        string
	ServiceLabel string
	Start        time.Time
	End          time.Time
	EventID      string
	HTMLLink     string
}
