package scheduling

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CredentialStore persists OAuth tokens per trainer email.
// Get returns a nil token when nothing is stored.
type CredentialStore interface {
	Get(ctx context.Context, email string) (*oauth2.Token, error)
	Set(ctx context.Context, email string, tok *oauth2.Token) error
	Has(ctx context.Context, email string) (bool, error)
}

// Authorization identifies whose token a gateway call runs under.
type Authorization struct {
	TrainerEmail string
	Token        *oauth2.Token
}

// CalendarGateway lists and inserts events on a remote calendar.
type CalendarGateway interface {
	ListEvents(ctx context.Context, auth Authorization, calendarID string, from, to time.Time) ([]CalendarEvent, error)
	InsertEvent(ctx context.Context, auth Authorization, calendarID string, draft EventDraft) (*InsertedEvent, error)
}

// Notifier delivers a booking notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SlotHolder guards a slot for a short time while it is being booked.
// Hold returns false when someone else already holds the key.
type SlotHolder interface {
	Hold(ctx context.Context, key string) (release func(context.Context), ok bool, err error)
}

// BookingRecorder keeps a local copy of created bookings.
type BookingRecorder interface {
	RecordBooking(ctx context.Context, req BookingRequest, r Receipt) error
}

// Engine computes slots and writes bookings against one calendar.
type Engine struct {
	credentials CredentialStore
	gateway     CalendarGateway
	notifier    Notifier
	holder      SlotHolder
	recorder    BookingRecorder
	calendarID  string
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time

	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithSlotHolder(h SlotHolder) Option { return func(e *Engine) { e.holder = h } }

func WithBookingRecorder(r BookingRecorder) Option { return func(e *Engine) { e.recorder = r } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func NewEngine(credentials CredentialStore, gateway CalendarGateway, calendarID string, loc *time.Location, opts ...Option) *Engine {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		credentials:   credentials,
		gateway:       gateway,
		calendarID:    calendarID,
		loc:           loc,
		logger:        zap.NewNop(),
		now:           time.Now,
		notifyTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location is the scheduling timezone.
func (e *Engine) Location() *time.Location { return e.loc }

// Wait blocks until in-flight notifications finish.
func (e *Engine) Wait() { e.wg.Wait() }

func (e *Engine) authorize(ctx context.Context, trainerEmail string) (Authorization, error) {
	if trainerEmail == "" {
		return Authorization{}, ErrNotAuthenticated
	}
	tok, err := e.credentials.Get(ctx, trainerEmail)
	if err != nil {
		return Authorization{}, err
	}
	if tok == nil {
		return Authorization{}, ErrNotAuthenticated
	}
	return Authorization{TrainerEmail: trainerEmail, Token: tok}, nil
}
