package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"trainer-scheduler/internal/scheduling"
)

// GoogleAuthHandler initiates the OAuth2 flow for the trainer calendar.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	state := a.States.Issue()
	url := a.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GoogleOAuth2CallbackHandler exchanges the code, stores the token and checks the calendar is reachable.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}
	if a.TrainerEmail == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trainer email not configured"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	if !a.States.Consume(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired state"})
		return
	}

	ctx := c.Request.Context()
	token, err := a.OAuth.Exchange(ctx, code)
	if err != nil {
		a.logger().Warn("oauth code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	if err := a.Credentials.Set(ctx, a.TrainerEmail, token); err != nil {
		a.fail(c, "store credential failed", err)
		return
	}
	a.logger().Info("trainer calendar connected", zap.String("trainer", a.TrainerEmail))

	calendars, err := a.Calendars.ListCalendars(ctx, scheduling.Authorization{TrainerEmail: a.TrainerEmail, Token: token})
	if err != nil {
		a.fail(c, "calendar connectivity check failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Authorization successful",
		"trainer":   a.TrainerEmail,
		"calendars": len(calendars),
	})
}

// GetGoogleCalendarList lists the connected trainer's calendars.
func (a *App) GetGoogleCalendarList(c *gin.Context) {
	ctx := c.Request.Context()
	token, err := a.Credentials.Get(ctx, a.TrainerEmail)
	if err != nil {
		a.fail(c, "load credential failed", err)
		return
	}
	if token == nil {
		a.fail(c, "calendar list", scheduling.ErrNotAuthenticated)
		return
	}

	calendars, err := a.Calendars.ListCalendars(ctx, scheduling.Authorization{TrainerEmail: a.TrainerEmail, Token: token})
	if err != nil {
		a.fail(c, "failed to retrieve calendars", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"calendars": calendars,
		"count":     len(calendars),
	})
}

// CredentialStatusHandler reports whether the trainer calendar is connected.
func (a *App) CredentialStatusHandler(c *gin.Context) {
	ok, err := a.Credentials.Has(c.Request.Context(), a.TrainerEmail)
	if err != nil {
		a.fail(c, "credential status failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainer": a.TrainerEmail, "connected": ok})
}
