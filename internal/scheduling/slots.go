package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("trainer-scheduler/scheduling")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
	}
	span.End()
}

// GetAvailableSlots returns the bookable slots for service on date (a local calendar day).
// Output order is window order, then chronological within each window.
func (e *Engine) GetAvailableSlots(ctx context.Context, trainerEmail string, date time.Time, service Service) (_ []Slot, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.available_slots", trace.WithAttributes(
		attribute.String("service.id", service.ID),
		attribute.String("date", date.Format(DateLayout)),
	))
	defer func() { endSpan(span, err) }()

	auth, err := e.authorize(ctx, trainerEmail)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := DayBounds(date, e.loc)
	events, err := e.gateway.ListEvents(ctx, auth, e.calendarID, dayStart, dayEnd)
	if err != nil {
		return nil, classifyGatewayError(err)
	}

	windows, busy := BuildWindows(events, dayStart, dayEnd)
	slots := GenerateSlots(windows, busy, service, e.now().In(e.loc))

	e.logger.Debug("computed slots",
		zap.String("date", dayStart.Format(DateLayout)),
		zap.String("service", service.ID),
		zap.Int("events", len(events)),
		zap.Int("windows", len(windows)),
		zap.Int("slots", len(slots)),
	)
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

// GenerateSlots walks each window in steps of the service duration.
// A candidate is dropped when [start-buffer, end+buffer) overlaps a busy interval,
// or when the window falls on now's day and the candidate does not start after now.
func GenerateSlots(windows []Window, busy []Interval, service Service, now time.Time) []Slot {
	duration := service.Duration()
	buffer := service.Buffer()
	if duration <= 0 {
		return nil
	}

	var slots []Slot
	for _, w := range windows {
		today := sameDay(w.Start.In(now.Location()), now)

		var cursor time.Time
		if w.End.Sub(w.Start) == duration {
			// authored as a single-slot window
			cursor = w.Start
		} else {
			earliest := w.Start
			if today && now.After(earliest) {
				earliest = now
			}
			cursor = roundUpToDuration(earliest.In(w.Start.Location()), service.DurationMinutes)
		}

		for {
			start := cursor
			end := start.Add(duration)
			if end.After(w.End) {
				break
			}
			cursor = end

			if today && !start.After(now) {
				continue
			}
			if overlapsAny(start.Add(-buffer), end.Add(buffer), busy) {
				continue
			}
			slots = append(slots, Slot{Start: start, End: end})
		}
	}
	return slots
}

// roundUpToDuration rounds t up to the next wall-clock multiple of minutes since local midnight.
func roundUpToDuration(t time.Time, minutes int) time.Time {
	y, m, d := t.Date()
	elapsed := t.Hour()*60 + t.Minute()
	if elapsed%minutes != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		elapsed = (elapsed/minutes + 1) * minutes
	}
	return time.Date(y, m, d, 0, elapsed, 0, 0, t.Location())
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// classifyGatewayError keeps taxonomy errors and folds anything else into ErrCalendarUnavailable.
func classifyGatewayError(err error) error {
	for _, known := range []error{ErrAuthExpired, ErrCalendarAPIDisabled, ErrCalendarUnavailable, ErrNotAuthenticated} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrCalendarUnavailable, err)
}
