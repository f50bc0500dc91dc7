package services

import (
	"context"
	"log/slog"
	"time"

	"craft-platform/config"
	"craft-platform/internal/errreport"
	"craft-platform/internal/gateway/momo"
	"craft-platform/internal/status"
	"craft-platform/models"
	"craft-platform/monitoring"

	pubnub "github.com/pubnub/go"
)

// PaymentMethod is the method descriptor shown on the payment page. The
// manual mobile-money transfer carries the recipient details the attendee
// needs to make the transfer.
type PaymentMethod struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Enabled         bool     `json:"enabled"`
	RecipientNumber string   `json:"recipient_number,omitempty"`
	RecipientNames  []string `json:"recipient_names,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	Note            string   `json:"note,omitempty"`
}

// DialogResult wraps the dialog state after an Advance. Finalized is set
// once the submit step ran and the registration was persisted.
type DialogResult struct {
	State     *CollectorState `json:"state"`
	Finalized *FinalizeResult `json:"finalized,omitempty"`
}

type PaymentService struct {
	cfg           *config.Config
	sessions      *SessionService
	registrations *RegistrationService
	reporter      *errreport.Recorder
	pn            *pubnub.PubNub
	gateway       *momo.Gateway
}

// NewPaymentService builds the payment workflow. pn and gateway may be nil
// when operator notifications or online payments are not configured.
func NewPaymentService(cfg *config.Config, sessions *SessionService, registrations *RegistrationService, reporter *errreport.Recorder, pn *pubnub.PubNub, gateway *momo.Gateway) *PaymentService {
	return &PaymentService{
		cfg:           cfg,
		sessions:      sessions,
		registrations: registrations,
		reporter:      reporter,
		pn:            pn,
		gateway:       gateway,
	}
}

// Methods lists the payment methods for an event with a stored draft. A
// missing draft means the session expired or the form was skipped, and the
// caller should send the user back to the registration form.
func (p *PaymentService) Methods(ctx context.Context, sid, eventID string) ([]PaymentMethod, error) {
	if _, err := p.sessions.GetDraft(ctx, sid, eventID); err != nil {
		return nil, err
	}

	methods := []PaymentMethod{
		{
			ID:              models.PaymentMethodManual,
			Label:           "Mobile money transfer",
			Enabled:         true,
			RecipientNumber: p.cfg.MomoRecipientNumber,
			RecipientNames:  p.cfg.MomoRecipientNames,
			Currency:        p.cfg.Currency,
			Note:            "Send the transfer first, then enter the transaction ID you received.",
		},
		{
			ID:      models.PaymentMethodOnline,
			Label:   "Pay online",
			Enabled: p.cfg.OnlinePaymentsEnabled && p.gateway != nil,
			Note:    "Online card and wallet payments are coming soon.",
		},
	}
	return methods, nil
}

// StartDialog opens the manual payment dialog for the draft's event, priced
// at the moment the dialog starts.
func (p *PaymentService) StartDialog(ctx context.Context, sid, eventID string) (*CollectorState, error) {
	if _, err := p.sessions.GetDraft(ctx, sid, eventID); err != nil {
		return nil, err
	}

	ev, err := p.registrations.Event(eventID)
	if err != nil {
		p.reporter.Record(ctx, errreport.Report{Component: "manual-payment", EventID: eventID}, err)
		return nil, err
	}

	state := NewCollectorState(ev.ID, ev.EffectivePrice(time.Now()))
	if err := p.sessions.StoreDialog(ctx, sid, state); err != nil {
		p.reporter.Record(ctx, errreport.Report{Component: "manual-payment", EventID: eventID, EventName: ev.Title}, err)
		return nil, err
	}

	monitoring.TrackCollectorOutcome(string(StepPayment), "started")
	return state, nil
}

// Advance moves the dialog one step forward. Reaching the submit step
// finalizes the registration as pending and alerts the operators channel.
func (p *PaymentService) Advance(ctx context.Context, sid, eventID string, in CollectorInput) (*DialogResult, error) {
	state, err := p.sessions.GetDialog(ctx, sid, eventID)
	if err != nil {
		return nil, err
	}

	step := state.Step
	if err := state.Advance(in); err != nil {
		monitoring.TrackCollectorOutcome(string(step), "blocked")
		p.reporter.Record(ctx, errreport.Report{Component: "manual-payment", EventID: eventID}, err)
		return nil, err
	}
	monitoring.TrackCollectorOutcome(string(step), "advanced")

	if !state.CanSubmit() {
		if err := p.sessions.StoreDialog(ctx, sid, state); err != nil {
			p.reporter.Record(ctx, errreport.Report{Component: "manual-payment", EventID: eventID}, err)
			return nil, err
		}
		return &DialogResult{State: state}, nil
	}

	details := state.Details()
	finalized, err := p.registrations.FinalizeManual(ctx, sid, eventID, details)
	if err != nil {
		return nil, err
	}

	if err := p.sessions.ClearDialog(ctx, sid, eventID); err != nil {
		slog.Warn("clear payment dialog failed", "event_id", eventID, "error", err)
	}

	monitoring.TrackCollectorOutcome(string(StepSubmit), "accepted")
	p.alertAdmins(eventID, finalized.SubmissionID, details)

	return &DialogResult{State: state, Finalized: finalized}, nil
}

// Back moves the dialog one step backwards so the attendee can correct an
// earlier answer.
func (p *PaymentService) Back(ctx context.Context, sid, eventID string) (*CollectorState, error) {
	state, err := p.sessions.GetDialog(ctx, sid, eventID)
	if err != nil {
		return nil, err
	}
	if err := state.Back(); err != nil {
		return nil, err
	}
	if err := p.sessions.StoreDialog(ctx, sid, state); err != nil {
		return nil, err
	}
	return state, nil
}

// StartOnlineCharge asks the gateway to create a charge for the draft's
// event. The charge reference encodes the session so the gateway
// notification can find the draft again.
func (p *PaymentService) StartOnlineCharge(ctx context.Context, sid, eventID, phone string) (string, error) {
	if !p.cfg.OnlinePaymentsEnabled || p.gateway == nil {
		return "", status.ErrPaymentMethodDisabled
	}
	if _, err := p.sessions.GetDraft(ctx, sid, eventID); err != nil {
		return "", err
	}

	ev, err := p.registrations.Event(eventID)
	if err != nil {
		return "", err
	}

	chargeID, err := p.gateway.CreateCharge(ctx, &momo.ChargeRequest{
		Reference: sid + "|" + eventID,
		Phone:     phone,
		Amount:    ev.EffectivePrice(time.Now()),
		Currency:  p.cfg.Currency,
	})
	if err != nil {
		p.reporter.Record(ctx, errreport.Report{Component: "online-payment", EventID: eventID, EventName: ev.Title}, err)
		return "", err
	}
	return chargeID, nil
}

// SettleTransaction finalizes the registration a successful gateway
// transaction pays for. Failed transactions are only reported.
func (p *PaymentService) SettleTransaction(ctx context.Context, txn *momo.Transaction) (*FinalizeResult, error) {
	if txn.Status != "success" {
		err := status.ErrSubmissionFailed
		p.reporter.Record(ctx, errreport.Report{
			Component: "online-payment",
			Message:   "gateway reported transaction " + txn.Reference + " as " + txn.Status,
		}, nil)
		return nil, err
	}

	details := models.PaymentDetails{
		TransactionID: txn.ChargeID,
		AccountName:   txn.Payer,
		Amount:        txn.Amount,
	}
	return p.registrations.FinalizeOnline(ctx, txn.Reference, details)
}

func (p *PaymentService) alertAdmins(eventID, submissionID string, details models.PaymentDetails) {
	if p.pn == nil {
		return
	}

	go func() {
		_, _, err := p.pn.Publish().
			Channel(p.cfg.AdminAlertChannel).
			Message(map[string]any{
				"type":           "pending_payment",
				"event_id":       eventID,
				"submission_id":  submissionID,
				"transaction_id": details.TransactionID,
				"account_name":   details.AccountName,
				"amount":         details.Amount.String(),
			}).
			Execute()
		if err != nil {
			slog.Warn("admin payment alert publish failed", "submission_id", submissionID, "error", err)
		}
	}()
}
