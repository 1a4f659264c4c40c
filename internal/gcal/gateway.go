package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"trainer-scheduler/internal/scheduling"
)

// NewOAuthConfig builds the OAuth2 configuration for Google Calendar.
// It returns nil when the client credentials are not configured.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			calendar.CalendarEventsScope,
			calendar.CalendarReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// CalendarInfo is an entry of the trainer's calendar list.
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"access_role"`
	TimeZone    string `json:"time_zone,omitempty"`
}

// Gateway talks to the Google Calendar API on behalf of a stored trainer credential.
type Gateway struct {
	oauth    *oauth2.Config
	store    scheduling.CredentialStore
	loc      *time.Location
	logger   *zap.Logger
	endpoint string
	base     http.RoundTripper
}

type Option func(*Gateway)

// WithEndpoint points the gateway at another API root (tests, proxies).
func WithEndpoint(url string) Option { return func(g *Gateway) { g.endpoint = url } }

// WithTransport sets the base transport under the OAuth2 transport.
func WithTransport(rt http.RoundTripper) Option { return func(g *Gateway) { g.base = rt } }

func NewGateway(cfg *oauth2.Config, store scheduling.CredentialStore, loc *time.Location, logger *zap.Logger, opts ...Option) *Gateway {
	if cfg == nil {
		cfg = &oauth2.Config{Endpoint: google.Endpoint}
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{oauth: cfg, store: store, loc: loc, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) service(ctx context.Context, auth scheduling.Authorization) (*calendar.Service, error) {
	if auth.Token == nil {
		return nil, scheduling.ErrNotAuthenticated
	}
	ts := &persistingTokenSource{
		base: g.oauth.TokenSource(context.WithoutCancel(ctx), auth.Token),
		last: auth.Token.AccessToken,
		save: func(tok *oauth2.Token) {
			if g.store == nil {
				return
			}
			if err := g.store.Set(context.Background(), auth.TrainerEmail, tok); err != nil {
				g.logger.Error("failed to persist refreshed token", zap.String("trainer", auth.TrainerEmail), zap.Error(err))
				return
			}
			g.logger.Info("refreshed token persisted", zap.String("trainer", auth.TrainerEmail))
		},
	}
	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: g.base},
		Timeout:   20 * time.Second,
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return srv, nil
}

// ListEvents returns every event overlapping [from, to), recurring events expanded.
func (g *Gateway) ListEvents(ctx context.Context, auth scheduling.Authorization, calendarID string, from, to time.Time) ([]scheduling.CalendarEvent, error) {
	srv, err := g.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	var out []scheduling.CalendarEvent
	call := srv.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			ev, ok := g.convert(item)
			if !ok {
				g.logger.Debug("skipping event with unparseable times", zap.String("event_id", item.Id))
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, Classify(err)
	}
	return out, nil
}

func (g *Gateway) convert(item *calendar.Event) (scheduling.CalendarEvent, bool) {
	ev := scheduling.CalendarEvent{ID: item.Id, Summary: item.Summary}
	if item.ExtendedProperties != nil {
		ev.Kind = item.ExtendedProperties.Private[scheduling.KindProperty]
	}
	if item.Start == nil || item.End == nil {
		return ev, false
	}

	if item.Start.DateTime != "" {
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return ev, false
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return ev, false
		}
		ev.Start, ev.End = start.In(g.loc), end.In(g.loc)
		return ev, true
	}

	start, err := time.ParseInLocation("2006-01-02", item.Start.Date, g.loc)
	if err != nil {
		return ev, false
	}
	end, err := time.ParseInLocation("2006-01-02", item.End.Date, g.loc)
	if err != nil {
		return ev, false
	}
	ev.Start, ev.End, ev.AllDay = start, end, true
	return ev, true
}

// InsertEvent creates the booking event without emailing attendees.
func (g *Gateway) InsertEvent(ctx context.Context, auth scheduling.Authorization, calendarID string, draft scheduling.EventDraft) (*scheduling.InsertedEvent, error) {
	srv, err := g.service(ctx, auth)
	if err != nil {
		return nil, err
	}

	tz := g.loc.String()
	event := &calendar.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Start:       &calendar.EventDateTime{DateTime: draft.Start.In(g.loc).Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: draft.End.In(g.loc).Format(time.RFC3339), TimeZone: tz},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, email := range draft.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}
	for _, r := range draft.Reminders {
		event.Reminders.Overrides = append(event.Reminders.Overrides, &calendar.EventReminder{Method: r.Method, Minutes: r.Minutes})
	}
	if draft.Kind != "" {
		event.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{scheduling.KindProperty: draft.Kind},
		}
	}

	created, err := srv.Events.Insert(calendarID, event).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return nil, Classify(err)
	}

	out := &scheduling.InsertedEvent{ID: created.Id, HTMLLink: created.HtmlLink}
	if created.Start != nil {
		if t, err := time.Parse(time.RFC3339, created.Start.DateTime); err == nil {
			out.Start = t.In(g.loc)
		}
	}
	if created.End != nil {
		if t, err := time.Parse(time.RFC3339, created.End.DateTime); err == nil {
			out.End = t.In(g.loc)
		}
	}
	return out, nil
}

// ListCalendars returns the trainer's calendar list; also used to verify connectivity.
func (g *Gateway) ListCalendars(ctx context.Context, auth scheduling.Authorization) ([]CalendarInfo, error) {
	srv, err := g.service(ctx, auth)
	if err != nil {
		return nil, err
	}
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, Classify(err)
	}

	calendars := []CalendarInfo{}
	for _, item := range list.Items {
		calendars = append(calendars, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
			AccessRole:  item.AccessRole,
			TimeZone:    item.TimeZone,
		})
	}
	return calendars, nil
}

// Classify maps Google API and OAuth failures onto the scheduling error taxonomy.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) || strings.Contains(err.Error(), "refresh token is not set") {
		return fmt.Errorf("%w: %w", scheduling.ErrAuthExpired, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if apiDisabled(gerr) {
			return fmt.Errorf("%w: %w", scheduling.ErrCalendarAPIDisabled, err)
		}
		if gerr.Code == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", scheduling.ErrAuthExpired, err)
		}
	}
	return fmt.Errorf("%w: %w", scheduling.ErrCalendarUnavailable, err)
}

func apiDisabled(gerr *googleapi.Error) bool {
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "accessNotConfigured" {
			return true
		}
	}
	msg := strings.ToLower(gerr.Message)
	return strings.Contains(msg, "has not been used") || strings.Contains(msg, "is disabled")
}
