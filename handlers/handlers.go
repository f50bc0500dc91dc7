package handlers

import (
	"errors"
	"net/http"

	"craft-platform/internal/status"
	"craft-platform/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// SessionHeader carries the opaque registration session token. The server
// issues it on draft capture; clients echo it on every later workflow call.
const SessionHeader = "X-Registration-Session"

func sessionToken(e *core.RequestEvent) string {
	token := e.Request.Header.Get(SessionHeader)
	if !utils.IsValidSessionToken(token) {
		return ""
	}
	return token
}

// sessionLost tells the client to restart at the registration form. Expired
// Redis sessions are expected, so this is a structured 409 rather than a
// bare error.
func sessionLost(e *core.RequestEvent, eventID string) error {
	return e.JSON(http.StatusConflict, map[string]string{
		"error":    "your registration session has expired",
		"redirect": "/events/" + eventID + "/register",
	})
}

// apiError maps workflow sentinel errors onto HTTP responses.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrEventNotPublished):
		return apis.NewNotFoundError("Event not found.", err)
	case errors.Is(err, status.ErrNoRegistrationForm):
		return apis.NewNotFoundError("This event has no registration form.", err)
	case errors.Is(err, status.ErrRegistrationClosed):
		return apis.NewBadRequestError("Registration for this event has closed.", err)
	case errors.Is(err, status.ErrEventFull):
		return apis.NewBadRequestError("This event is fully booked.", err)
	case errors.Is(err, status.ErrMissingAnswer):
		return apis.NewBadRequestError("Please fill in all required fields.", err)
	case errors.Is(err, status.ErrTransactionIDTooShort):
		return apis.NewBadRequestError("The transaction ID looks too short. Please check it and try again.", err)
	case errors.Is(err, status.ErrAccountNameRequired):
		return apis.NewBadRequestError("Please enter the account name the transfer was sent from.", err)
	case errors.Is(err, status.ErrInvalidCollectorStep):
		return apis.NewBadRequestError("This step is not available right now.", err)
	case errors.Is(err, status.ErrPaymentMethodDisabled):
		return apis.NewBadRequestError("This payment method is not available.", err)
	case errors.Is(err, status.ErrInvalidDonationAmount):
		return apis.NewBadRequestError("Please enter a donation amount greater than zero.", err)
	case errors.Is(err, status.ErrDonorDetailsIncomplete):
		return apis.NewBadRequestError("Please provide your name and email address.", err)
	default:
		return apis.NewInternalServerError("Something went wrong. Please try again.", err)
	}
}
