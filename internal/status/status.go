package status

import "errors"

// Configuration errors.
var (
	ErrNoRegistrationForm = errors.New("event: no registration form configured")
	ErrEventNotFound      = errors.New("event: event not found")
	ErrEventNotPublished  = errors.New("event: event is not published")
)

// Validation errors.
var (
	ErrRegistrationClosed     = errors.New("registration: registration deadline has passed")
	ErrEventFull              = errors.New("registration: event has reached capacity")
	ErrMissingAnswer          = errors.New("registration: required answer missing")
	ErrTransactionIDTooShort  = errors.New("payment: transaction id too short")
	ErrAccountNameRequired    = errors.New("payment: account name is required")
	ErrInvalidCollectorStep   = errors.New("payment: invalid dialog step transition")
	ErrPaymentMethodDisabled  = errors.New("payment: payment method is not enabled")
	ErrInvalidDonationAmount  = errors.New("donation: amount must be greater than zero")
	ErrDonorDetailsIncomplete = errors.New("donation: donor name and email are required")
)

// Persistence errors.
var (
	ErrSubmissionFailed = errors.New("registration: could not save registration, try again")
	ErrDonationFailed   = errors.New("donation: could not save donation, try again")
)

// Notification errors.
var ErrEmailFailed = errors.New("notification: confirmation email could not be sent")

// Session errors.
var (
	ErrDraftNotFound  = errors.New("session: no registration draft for this event")
	ErrDialogNotFound = errors.New("payment: no payment dialog in progress")
)
