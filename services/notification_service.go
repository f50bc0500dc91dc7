package services

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"craft-platform/internal/status"
	"craft-platform/models"
	"craft-platform/monitoring"
	"craft-platform/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	"github.com/shopspring/decimal"
)

// NotificationService sends the confirmation and receipt emails through the
// app's configured mailer. Sends run behind a circuit breaker so a
// struggling SMTP provider degrades to skipped emails instead of hanging
// requests.
type NotificationService struct {
	app     core.App
	breaker *utils.CircuitBreaker
}

func NewNotificationService(app core.App) *NotificationService {
	return &NotificationService{
		app:     app,
		breaker: utils.NewCircuitBreaker("mailer"),
	}
}

// DonationReceipt is the payload for a donation acknowledgement email.
type DonationReceipt struct {
	DonationID string
	Reference  string
	Name       string
	Email      string
	Amount     decimal.Decimal
	Currency   string
	Frequency  string
	Status     string
	Date       time.Time
}

// SendRegistrationEmail emails the respondent after their registration was
// finalized. Pending registrations get a "received, payment under review"
// message, approved ones a confirmation.
func (n *NotificationService) SendRegistrationEmail(ctx context.Context, ev *models.Event, cc *models.ConfirmationContext) error {
	if cc.Email == "" {
		return fmt.Errorf("%w: no email address in responses", status.ErrEmailFailed)
	}

	var subject, body string
	switch cc.Status {
	case models.StatusPending:
		subject = fmt.Sprintf("Registration received: %s", ev.Title)
		body = fmt.Sprintf(
			"Hello %s,\n\nWe received your registration for %s and your payment details are being verified. "+
				"You will get a confirmation once an administrator has reviewed them.\n\n"+
				"Event date: %s\n\nThank you!",
			cc.Name, ev.Title, ev.StartAt.Format("Monday, 2 January 2006 at 15:04"))
	default:
		subject = fmt.Sprintf("Registration confirmed: %s", ev.Title)
		body = fmt.Sprintf(
			"Hello %s,\n\nYour registration for %s is confirmed.\n\n"+
				"Event date: %s\n\nSee you there!",
			cc.Name, ev.Title, ev.StartAt.Format("Monday, 2 January 2006 at 15:04"))
	}

	err := n.send(ctx, cc.Name, cc.Email, subject, body)
	monitoring.TrackEmail("registration", err == nil)
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrEmailFailed, err)
	}
	return nil
}

// SendDonationEmail acknowledges a donation.
func (n *NotificationService) SendDonationEmail(ctx context.Context, receipt DonationReceipt) error {
	if receipt.Email == "" {
		return fmt.Errorf("%w: no recipient", status.ErrEmailFailed)
	}

	var subject, body string
	if receipt.Status == models.StatusPending {
		subject = fmt.Sprintf("Donation received (ref %s)", receipt.Reference)
		body = fmt.Sprintf(
			"Dear %s,\n\nThank you for your %s donation of %s %s on %s. "+
				"Your transfer details are being verified and you will receive a final receipt shortly.\n\n"+
				"Reference: %s",
			receipt.Name, receipt.Frequency, receipt.Currency, receipt.Amount.StringFixed(2),
			receipt.Date.Format("2 January 2006"), receipt.Reference)
	} else {
		subject = fmt.Sprintf("Thank you for your donation (ref %s)", receipt.Reference)
		body = fmt.Sprintf(
			"Dear %s,\n\nThank you for your %s donation of %s %s on %s. "+
				"Your support makes our research and training work possible.\n\n"+
				"Reference: %s",
			receipt.Name, receipt.Frequency, receipt.Currency, receipt.Amount.StringFixed(2),
			receipt.Date.Format("2 January 2006"), receipt.Reference)
	}

	err := n.send(ctx, receipt.Name, receipt.Email, subject, body)
	monitoring.TrackEmail("donation", err == nil)
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrEmailFailed, err)
	}
	return nil
}

func (n *NotificationService) send(ctx context.Context, name, address, subject, body string) error {
	settings := n.app.Settings()
	message := &mailer.Message{
		From: mail.Address{
			Name:    settings.Meta.SenderName,
			Address: settings.Meta.SenderAddress,
		},
		To:      []mail.Address{{Name: name, Address: address}},
		Subject: subject,
		Text:    body,
	}

	_, err := n.breaker.Execute(ctx, func() (any, error) {
		return nil, n.app.NewMailClient().Send(message)
	})
	return err
}
