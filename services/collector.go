package services

import (
	"strings"
	"time"

	"craft-platform/internal/status"
	"craft-platform/models"

	"github.com/shopspring/decimal"
)

// MinTransactionIDLength matches the shortest reference mobile money
// providers issue for a completed transfer.
const MinTransactionIDLength = 11

type CollectorStep string

const (
	StepPayment      CollectorStep = "payment"
	StepTransaction  CollectorStep = "transaction"
	StepConfirmation CollectorStep = "confirmation"
	StepSubmit       CollectorStep = "submit"
)

// CollectorState is the manual payment dialog: it walks the attendee from
// the transfer instructions through transaction-ID and account-name entry
// to the final submit step. Validation happens on Advance, so a state that
// reached StepSubmit always carries usable payment details.
type CollectorState struct {
	EventID       string          `json:"event_id"`
	Step          CollectorStep   `json:"step"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AccountName   string          `json:"account_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	StartedAt     time.Time       `json:"started_at"`
}

type CollectorInput struct {
	TransactionID string `json:"transaction_id"`
	AccountName   string `json:"account_name"`
}

func NewCollectorState(eventID string, amount decimal.Decimal) *CollectorState {
	return &CollectorState{
		EventID:   eventID,
		Step:      StepPayment,
		Amount:    amount,
		StartedAt: time.Now(),
	}
}

// Advance validates the input the current step requires and moves forward.
// On a validation error the state is left untouched so the caller can
// re-prompt.
func (s *CollectorState) Advance(in CollectorInput) error {
	switch s.Step {
	case StepPayment:
		s.Step = StepTransaction
	case StepTransaction:
		id := strings.TrimSpace(in.TransactionID)
		if len(id) < MinTransactionIDLength {
			return status.ErrTransactionIDTooShort
		}
		s.TransactionID = id
		s.Step = StepConfirmation
	case StepConfirmation:
		name := strings.TrimSpace(in.AccountName)
		if name == "" {
			return status.ErrAccountNameRequired
		}
		s.AccountName = name
		s.Step = StepSubmit
	default:
		return status.ErrInvalidCollectorStep
	}
	return nil
}

// Back returns to the previous step, keeping already-collected values so
// the attendee can correct rather than retype them.
func (s *CollectorState) Back() error {
	switch s.Step {
	case StepTransaction:
		s.Step = StepPayment
	case StepConfirmation:
		s.Step = StepTransaction
	default:
		return status.ErrInvalidCollectorStep
	}
	return nil
}

func (s *CollectorState) CanSubmit() bool {
	return s.Step == StepSubmit
}

// Details returns the collected payment details. Only meaningful once
// CanSubmit reports true.
func (s *CollectorState) Details() models.PaymentDetails {
	return models.PaymentDetails{
		TransactionID: s.TransactionID,
		AccountName:   s.AccountName,
		Amount:        s.Amount,
	}
}
