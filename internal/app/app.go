package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"trainer-scheduler/internal/gcal"
	"trainer-scheduler/internal/scheduling"
	"trainer-scheduler/internal/storage"
)

// OAuthFlow is the subset of *oauth2.Config used by the OAuth endpoints.
type OAuthFlow interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// CalendarLister lists the trainer's calendars.
type CalendarLister interface {
	ListCalendars(ctx context.Context, auth scheduling.Authorization) ([]gcal.CalendarInfo, error)
}

// BookingLedger lists locally recorded bookings.
type BookingLedger interface {
	ListBookings(ctx context.Context, trainerEmail string, from, to time.Time, filtered bool) ([]storage.Booking, error)
}

// App holds the dependencies of the HTTP handlers.
type App struct {
	Engine       *scheduling.Engine
	Catalog      *scheduling.Catalog
	Credentials  scheduling.CredentialStore
	Calendars    CalendarLister
	Ledger       BookingLedger
	OAuth        OAuthFlow
	States       *gcal.StateStore
	TrainerEmail string
	Logger       *zap.Logger
}

// Routes registers every endpoint on router. Admin routes go through adminAuth.
func (a *App) Routes(router *gin.Engine, adminAuth gin.HandlerFunc) {
	router.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	api := router.Group("/api")
	{
		api.GET("/availability", a.AvailabilityHandler)
		api.POST("/book", a.BookHandler)
		api.GET("/services", a.ServicesHandler)

		google := api.Group("/google/oauth")
		{
			google.GET("/start", a.GoogleAuthHandler)
			google.GET("/callback", a.GoogleOAuth2CallbackHandler)
		}

		admin := api.Group("/admin", adminAuth)
		{
			admin.GET("/calendars", a.GetGoogleCalendarList)
			admin.GET("/bookings", a.ListBookingsHandler)
			admin.GET("/credentials/status", a.CredentialStatusHandler)
		}
	}
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
