package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Submission lifecycle statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Payment methods.
const (
	PaymentMethodManual = "manual"
	PaymentMethodOnline = "online"
)

// Draft holds a respondent's answers between the registration form and the
// payment stage. Drafts live in the server-held registration session, never
// in the database.
type Draft struct {
	EventID   string            `json:"event_id"`
	FormID    string            `json:"form_schema_id"`
	Responses map[string]string `json:"responses"`
}

// PaymentDetails is the user-supplied claim for a manual mobile-money
// payment. It stays unverified until an administrator confirms it.
type PaymentDetails struct {
	TransactionID string          `json:"transaction_id"`
	AccountName   string          `json:"account_name"`
	Amount        decimal.Decimal `json:"amount"`
}

// FormSubmission is the durable registration record.
type FormSubmission struct {
	ID             string            `json:"id"`
	EventID        string            `json:"event_id"`
	FormID         string            `json:"form_id"`
	Responses      map[string]string `json:"responses"`
	Status         string            `json:"status"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
	PaymentDetails *PaymentDetails   `json:"payment_details,omitempty"`
	ReviewedBy     string            `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ConfirmationContext is the small snapshot the finalizer leaves in the
// session so the confirmation page can send the email after the draft has
// been cleared.
type ConfirmationContext struct {
	SubmissionID  string `json:"submission_id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`

	// EmailSent marks that the confirmation email already went out, so a
	// reloaded confirmation page does not send it again.
	EmailSent bool `json:"email_sent"`
}
