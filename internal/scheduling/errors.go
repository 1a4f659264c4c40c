package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated    = errors.New("trainer calendar is not connected")
	ErrAuthExpired         = errors.New("calendar credential expired or revoked")
	ErrCalendarAPIDisabled = errors.New("calendar API is not enabled for this project")
	ErrCalendarUnavailable = errors.New("calendar unavailable")
	ErrInvalidServiceID    = errors.New("Invalid service ID")
	ErrMissingField        = errors.New("missing required field")
	ErrBookingFailed       = errors.New("booking failed")
	ErrNotificationFailed  = errors.New("notification failed")
	ErrSlotHeld            = errors.New("slot is being booked by someone else")
)

var errorCodes = []struct {
	err  error
	code string
}{
	// a failed insert reports BookingFailed; the cause stays in the message
	{ErrBookingFailed, "BookingFailed"},
	{ErrNotAuthenticated, "NotAuthenticated"},
	{ErrAuthExpired, "AuthExpired"},
	{ErrCalendarAPIDisabled, "CalendarApiDisabled"},
	{ErrCalendarUnavailable, "CalendarUnavailable"},
	{ErrInvalidServiceID, "InvalidServiceId"},
	{ErrMissingField, "MissingField"},
	{ErrSlotHeld, "SlotHeld"},
	{ErrNotificationFailed, "NotificationFailed"},
}

// ErrorCode returns the stable code of the first taxonomy error found in err's chain.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}

// MissingField reports an absent required field by name.
func MissingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
