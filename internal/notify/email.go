package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"trainer-scheduler/internal/scheduling"
)

const (
	dateFormat = "Monday, 2 January 2006"
	timeFormat = "15:04"
)

// EmailNotifier sends the trainer notice and the client confirmation by email.
type EmailNotifier struct {
	mailer Mailer
	loc    *time.Location
	now    func() time.Time
}

func NewEmailNotifier(mailer Mailer, loc *time.Location) *EmailNotifier {
	if loc == nil {
		loc = time.Local
	}
	return &EmailNotifier{mailer: mailer, loc: loc, now: time.Now}
}

func (e *EmailNotifier) Notify(ctx context.Context, n scheduling.Notification) error {
	start := n.Start.In(e.loc)
	end := n.End.In(e.loc)
	when := fmt.Sprintf("%s, %s-%s", start.Format(dateFormat), start.Format(timeFormat), end.Format(timeFormat))

	switch n.Kind {
	case scheduling.NotifyTrainer:
		var body strings.Builder
		fmt.Fprintf(&body, "New booking: %s\n", n.ServiceLabel)
		fmt.Fprintf(&body, "When: %s\n", when)
		fmt.Fprintf(&body, "Client: %s <%s>\n", n.ClientName, n.ClientEmail)
		if n.ClientPhone != "" {
			fmt.Fprintf(&body, "Phone: %s\n", n.ClientPhone)
		}
		if n.Notes != "" {
			fmt.Fprintf(&body, "Notes: %s\n", n.Notes)
		}
		if n.HTMLLink != "" {
			fmt.Fprintf(&body, "Calendar: %s\n", n.HTMLLink)
		}
		return e.mailer.Send(ctx, Mail{
			To:      n.TrainerEmail,
			Subject: fmt.Sprintf("New booking: %s - %s", n.ServiceLabel, n.ClientName),
			Body:    body.String(),
		})

	case scheduling.NotifyClient:
		body := fmt.Sprintf("Hi %s,\n\nYour %s is confirmed for %s.\n\nSee you there!\n", n.ClientName, n.ServiceLabel, when)
		return e.mailer.Send(ctx, Mail{
			To:      n.ClientEmail,
			Subject: fmt.Sprintf("Booking confirmed: %s", n.ServiceLabel),
			Body:    body,
			Invite:  []byte(e.invite(n)),
		})
	}
	return fmt.Errorf("unknown notification kind %q", n.Kind)
}

// invite renders an iCalendar REQUEST for the booked session.
func (e *EmailNotifier) invite(n scheduling.Notification) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//trainer-scheduler//booking//EN")

	uid := n.EventID
	if uid == "" {
		uid = fmt.Sprintf("%d", n.Start.Unix())
	}
	event := cal.AddEvent(uid + "@trainer-scheduler")
	event.SetDtStampTime(e.now())
	event.SetStartAt(n.Start)
	event.SetEndAt(n.End)
	event.SetSummary(n.ServiceLabel)
	if n.HTMLLink != "" {
		event.SetURL(n.HTMLLink)
	}
	if n.TrainerEmail != "" {
		event.SetOrganizer("mailto:" + n.TrainerEmail)
	}
	event.AddAttendee("mailto:"+n.ClientEmail, ics.WithCN(n.ClientName))
	return cal.Serialize()
}
