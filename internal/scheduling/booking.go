package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var bookingReminders = []Reminder{
	{Method: "email", Minutes: 24 * 60},
	{Method: "popup", Minutes: 30},
}

// CreateBooking writes the booking event and fires notifications.
// The slot is not re-validated against the calendar.
func (e *Engine) CreateBooking(ctx context.Context, req BookingRequest) (_ *Receipt, err error) {
	ctx, span := tracer.Start(ctx, "scheduling.create_booking", trace.WithAttributes(
		attribute.String("service.id", req.Service.ID),
		attribute.String("start", req.Start.Format(OffsetLayout)),
	))
	defer func() { endSpan(span, err) }()

	auth, err := e.authorize(ctx, req.TrainerEmail)
	if err != nil {
		return nil, err
	}
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	committed := false
	if e.holder != nil {
		release, err := e.holdSpan(ctx, req)
		if err != nil {
			return nil, err
		}
		// once the event exists the holds stay until their TTL
		defer func() {
			if !committed {
				release(context.WithoutCancel(ctx))
			}
		}()
	}

	receipt, err := e.insertBooking(ctx, auth, req)
	if err != nil {
		return nil, err
	}
	committed = true
	e.afterCommit(ctx, req, *receipt)
	return receipt, nil
}

func validateBooking(req BookingRequest) error {
	switch {
	case strings.TrimSpace(req.ClientName) == "":
		return MissingField("name")
	case strings.TrimSpace(req.ClientEmail) == "":
		return MissingField("email")
	case req.Start.IsZero():
		return MissingField("start")
	case req.End.IsZero():
		return MissingField("end")
	case req.Service.ID == "":
		return MissingField("service")
	}
	return nil
}

func (e *Engine) insertBooking(ctx context.Context, auth Authorization, req BookingRequest) (*Receipt, error) {
	draft := BookingDraft(req)
	inserted, err := e.gateway.InsertEvent(ctx, auth, e.calendarID, draft)
	if err != nil {
		e.logger.Error("booking insert failed",
			zap.String("service", req.Service.ID),
			zap.Time("start", req.Start),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrBookingFailed, classifyGatewayError(err))
	}

	receipt := &Receipt{
		EventID:   inserted.ID,
		HTMLLink:  inserted.HTMLLink,
		StartTime: inserted.Start.In(e.loc),
		EndTime:   inserted.End.In(e.loc),
	}
	if inserted.Start.IsZero() {
		receipt.StartTime = req.Start.In(e.loc)
	}
	if inserted.End.IsZero() {
		receipt.EndTime = req.End.In(e.loc)
	}

	e.logger.Info("booking created",
		zap.String("event_id", receipt.EventID),
		zap.String("service", req.Service.ID),
		zap.String("client", req.ClientEmail),
		zap.String("start", receipt.StartTime.Format(OffsetLayout)),
	)
	return receipt, nil
}

// BookingDraft builds the calendar event for a booking request.
func BookingDraft(req BookingRequest) EventDraft {
	var desc strings.Builder
	fmt.Fprintf(&desc, "Client: %s\n", req.ClientName)
	fmt.Fprintf(&desc, "Email: %s\n", req.ClientEmail)
	if req.ClientPhone != "" {
		fmt.Fprintf(&desc, "Phone: %s\n", req.ClientPhone)
	}
	if req.Notes != "" {
		fmt.Fprintf(&desc, "Notes: %s\n", req.Notes)
	}

	attendees := []string{req.ClientEmail}
	if req.TrainerEmail != "" && !strings.EqualFold(req.TrainerEmail, req.ClientEmail) {
		attendees = append(attendees, req.TrainerEmail)
	}

	return EventDraft{
		Summary:     fmt.Sprintf("%s - %s", req.Service.Label, req.ClientName),
		Description: strings.TrimRight(desc.String(), "\n"),
		Start:       req.Start,
		End:         req.End,
		Attendees:   attendees,
		Reminders:   append([]Reminder(nil), bookingReminders...),
		Kind:        KindBooking,
	}
}

// holdGrid is the cell size holds are taken on. Bookings that share any
// cell conflict, whatever their start times.
const holdGrid = 15 * time.Minute

// HoldKey identifies one grid cell of a trainer's calendar.
func HoldKey(trainerEmail string, cell time.Time) string {
	return fmt.Sprintf("hold:%s:%d", strings.ToLower(trainerEmail), cell.Unix())
}

// HoldKeys lists the cells covering [start, end).
func HoldKeys(trainerEmail string, start, end time.Time) []string {
	var keys []string
	for cell := start.Truncate(holdGrid); cell.Before(end); cell = cell.Add(holdGrid) {
		keys = append(keys, HoldKey(trainerEmail, cell))
	}
	return keys
}

// holdSpan holds every cell of the booking or none of them.
func (e *Engine) holdSpan(ctx context.Context, req BookingRequest) (func(context.Context), error) {
	var releases []func(context.Context)
	releaseAll := func(ctx context.Context) {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i](ctx)
		}
	}
	for _, key := range HoldKeys(req.TrainerEmail, req.Start, req.End) {
		release, ok, err := e.holder.Hold(ctx, key)
		if err != nil {
			releaseAll(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("%w: hold slot: %w", ErrBookingFailed, err)
		}
		if !ok {
			releaseAll(context.WithoutCancel(ctx))
			return nil, ErrSlotHeld
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// afterCommit runs the best-effort steps that follow a committed booking.
// Nothing here can fail the booking.
func (e *Engine) afterCommit(ctx context.Context, req BookingRequest, r Receipt) {
	bg := context.WithoutCancel(ctx)

	if e.recorder != nil {
		if err := e.recorder.RecordBooking(bg, req, r); err != nil {
			e.logger.Warn("record booking failed", zap.String("event_id", r.EventID), zap.Error(err))
		}
	}
	if e.notifier == nil {
		return
	}

	base := Notification{
		TrainerEmail: req.TrainerEmail,
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		ClientPhone:  req.ClientPhone,
		Notes:        req.Notes,
		ServiceLabel: req.Service.Label,
		Start:        r.StartTime,
		End:          r.EndTime,
		EventID:      r.EventID,
		HTMLLink:     r.HTMLLink,
	}
	for _, kind := range []NotificationKind{NotifyTrainer, NotifyClient} {
		n := base
		n.Kind = kind
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.notify(bg, n)
		}()
	}
}

func (e *Engine) notify(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("notifier panicked", zap.String("kind", string(n.Kind)), zap.Any("panic", rec))
		}
	}()

	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("notification not sent",
			zap.String("kind", string(n.Kind)),
			zap.String("event_id", n.EventID),
			zap.Error(fmt.Errorf("%w: %w", ErrNotificationFailed, err)),
		)
		return
	}
	e.logger.Info("notification sent", zap.String("kind", string(n.Kind)), zap.String("event_id", n.EventID))
}
