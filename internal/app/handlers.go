package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trainer-scheduler/internal/scheduling"
)

// GET /api/availability?date=YYYY-MM-DD&service=<id>
func (a *App) AvailabilityHandler(c *gin.Context) {
	dateStr := strings.TrimSpace(c.Query("date"))
	serviceID := strings.TrimSpace(c.Query("service"))
	if dateStr == "" || serviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing date or service"})
		return
	}
	date, err := scheduling.ParseDate(dateStr, a.Engine.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}
	service, err := a.Catalog.Lookup(serviceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service ID"})
		return
	}
	if a.TrainerEmail == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trainer email not configured"})
		return
	}

	slots, err := a.Engine.GetAvailableSlots(c.Request.Context(), a.TrainerEmail, date, service)
	if err != nil {
		a.fail(c, "availability query failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type bookReq struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Note    string `json:"note,omitempty"`
	Start   string `json:"start" binding:"required"` // RFC3339 with offset
	End     string `json:"end" binding:"required"`
	Service string `json:"service" binding:"required"`
}

// POST /api/book
func (a *App) BookHandler(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "details": err.Error()})
		return
	}
	service, err := a.Catalog.Lookup(req.Service)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service ID"})
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return
	}
	if a.TrainerEmail == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trainer email not configured"})
		return
	}

	receipt, err := a.Engine.CreateBooking(c.Request.Context(), scheduling.BookingRequest{
		TrainerEmail: a.TrainerEmail,
		ClientName:   strings.TrimSpace(req.Name),
		ClientEmail:  strings.TrimSpace(req.Email),
		ClientPhone:  strings.TrimSpace(req.Phone),
		Notes:        strings.TrimSpace(req.Note),
		Start:        start,
		End:          end,
		Service:      service,
	})
	if err != nil {
		a.fail(c, "booking failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"eventId":   receipt.EventID,
		"htmlLink":  receipt.HTMLLink,
		"startTime": receipt.StartTime.Format(scheduling.OffsetLayout),
		"endTime":   receipt.EndTime.Format(scheduling.OffsetLayout),
	})
}

// GET /api/services
func (a *App) ServicesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": a.Catalog.All()})
}

// GET /api/admin/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	if a.Ledger == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "bookings ledger not configured"})
		return
	}
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var (
		from time.Time
		to   time.Time
		err  error
	)

	// if both provided, parse
	if fromStr != "" && toStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		if !from.Before(to) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
			return
		}
	}

	bookings, err := a.Ledger.ListBookings(c.Request.Context(), a.TrainerEmail, from, to, fromStr != "" && toStr != "")
	if err != nil {
		a.fail(c, "list bookings failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrInvalidServiceID), errors.Is(err, scheduling.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, scheduling.ErrSlotHeld):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	code := scheduling.ErrorCode(err)
	if status >= http.StatusInternalServerError {
		a.logger().Error(msg, zap.String("code", code), zap.Error(err))
	} else {
		a.logger().Info(msg, zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
