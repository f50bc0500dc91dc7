package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"craft-platform/internal/errreport"
	"craft-platform/internal/status"
	"craft-platform/models"
	"craft-platform/monitoring"
	"craft-platform/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// DonationService handles the one-shot donation flow. Donations are
// independent of events and registration sessions: the whole flow is a
// single validated write plus a best-effort receipt email.
type DonationService struct {
	app      core.App
	notifier *NotificationService
	reporter *errreport.Recorder
	currency string
}

func NewDonationService(app core.App, notifier *NotificationService, reporter *errreport.Recorder, currency string) *DonationService {
	return &DonationService{
		app:      app,
		notifier: notifier,
		reporter: reporter,
		currency: currency,
	}
}

type DonationRequest struct {
	DonorName     string                 `json:"donor_name"`
	DonorEmail    string                 `json:"donor_email"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Frequency     string                 `json:"frequency"`
	PaymentMethod string                 `json:"payment_method"`
	Details       *models.PaymentDetails `json:"payment_details"`
}

// Create validates and persists a donation. Manual mobile-money donations
// need verifiable transfer details and start out pending review; everything
// else is recorded as approved.
func (d *DonationService) Create(ctx context.Context, req DonationRequest) (*models.Donation, error) {
	name := strings.TrimSpace(req.DonorName)
	email := strings.TrimSpace(req.DonorEmail)
	if name == "" || email == "" {
		return nil, status.ErrDonorDetailsIncomplete
	}
	if !req.Amount.IsPositive() {
		return nil, status.ErrInvalidDonationAmount
	}

	frequency := req.Frequency
	if frequency != "monthly" {
		frequency = "once"
	}
	currency := req.Currency
	if currency == "" {
		currency = d.currency
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodManual
	}

	donationStatus := models.StatusApproved
	var details *models.PaymentDetails
	if method == models.PaymentMethodManual {
		if req.Details == nil {
			return nil, status.ErrTransactionIDTooShort
		}
		txnID := strings.TrimSpace(req.Details.TransactionID)
		if len(txnID) < MinTransactionIDLength {
			return nil, status.ErrTransactionIDTooShort
		}
		account := strings.TrimSpace(req.Details.AccountName)
		if account == "" {
			return nil, status.ErrAccountNameRequired
		}
		details = &models.PaymentDetails{
			TransactionID: txnID,
			AccountName:   account,
			Amount:        req.Amount,
		}
		donationStatus = models.StatusPending
	}

	reference, err := utils.GenerateCode(5)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrDonationFailed, err)
	}
	reference = "DN-" + reference

	collection, err := d.app.FindCollectionByNameOrId("donations")
	if err != nil {
		d.report(ctx, reference, err)
		return nil, fmt.Errorf("%w: %v", status.ErrDonationFailed, err)
	}

	record := core.NewRecord(collection)
	record.Set("reference", reference)
	record.Set("donor_name", name)
	record.Set("donor_email", email)
	amount, _ := req.Amount.Float64()
	record.Set("amount", amount)
	record.Set("currency", currency)
	record.Set("frequency", frequency)
	record.Set("payment_method", method)
	record.Set("status", donationStatus)
	if details != nil {
		record.Set("payment_details", details)
	}

	if err := d.app.SaveWithContext(ctx, record); err != nil {
		d.report(ctx, reference, err)
		return nil, fmt.Errorf("%w: %v", status.ErrDonationFailed, err)
	}

	monitoring.TrackDonation(donationStatus)

	donation := &models.Donation{
		ID:             record.Id,
		Reference:      reference,
		DonorName:      name,
		DonorEmail:     email,
		Amount:         req.Amount,
		Currency:       currency,
		Frequency:      frequency,
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         donationStatus,
		CreatedAt:      record.GetDateTime("created").Time(),
	}

	// The receipt must not block or fail the donation.
	if err := d.notifier.SendDonationEmail(ctx, DonationReceipt{
		DonationID: donation.ID,
		Reference:  reference,
		Name:       name,
		Email:      email,
		Amount:     req.Amount,
		Currency:   currency,
		Frequency:  frequency,
		Status:     donationStatus,
		Date:       time.Now(),
	}); err != nil {
		slog.Warn("donation receipt email failed", "donation_id", donation.ID, "error", err)
	}

	slog.Info("donation recorded",
		"donation_id", donation.ID,
		"reference", reference,
		"amount", req.Amount.String(),
		"status", donationStatus)

	return donation, nil
}

// Status returns the review status for a donation.
func (d *DonationService) Status(ctx context.Context, donationID string) (*models.Donation, error) {
	record, err := d.app.FindRecordById("donations", donationID)
	if err != nil {
		return nil, status.ErrDonationFailed
	}
	return &models.Donation{
		ID:        record.Id,
		Reference: record.GetString("reference"),
		Status:    record.GetString("status"),
		Frequency: record.GetString("frequency"),
		Currency:  record.GetString("currency"),
		Amount:    decimal.NewFromFloat(record.GetFloat("amount")),
		CreatedAt: record.GetDateTime("created").Time(),
	}, nil
}

func (d *DonationService) report(ctx context.Context, reference string, err error) {
	d.reporter.Record(ctx, errreport.Report{
		Component: "donation",
		Message:   "donation " + reference,
	}, err)
}
