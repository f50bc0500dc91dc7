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

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// RegistrationService owns the registration workflow: draft capture with
// form validation, the free/paid branch, and finalization into the
// form_submissions collection.
type RegistrationService struct {
	app      core.App
	sessions *SessionService
	reporter *errreport.Recorder
}

func NewRegistrationService(app core.App, sessions *SessionService, reporter *errreport.Recorder) *RegistrationService {
	return &RegistrationService{
		app:      app,
		sessions: sessions,
		reporter: reporter,
	}
}

// CaptureResult tells the client where the workflow goes after the form
// was accepted.
type CaptureResult struct {
	SessionToken string          `json:"session_token"`
	Next         string          `json:"next"` // "payment" or "confirmation"
	EventID      string          `json:"event_id"`
	Finalized    *FinalizeResult `json:"finalized,omitempty"`
}

// FinalizeResult reports the outcome of persisting a registration. The
// attendee counter is updated in a second, independent step; when that step
// fails the submission still stands and CounterUpdated is false.
type FinalizeResult struct {
	SubmissionID   string `json:"submission_id"`
	Status         string `json:"status"`
	CounterUpdated bool   `json:"counter_updated"`
	Warning        string `json:"warning,omitempty"`
}

func (s *RegistrationService) Event(eventID string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, status.ErrEventNotFound
	}
	return EventFromRecord(record), nil
}

// EventFromRecord maps an events collection record onto the domain model.
func EventFromRecord(record *core.Record) *models.Event {
	return &models.Event{
		ID:                   record.Id,
		Title:                record.GetString("title"),
		Theme:                record.GetString("theme"),
		Description:          record.GetString("description"),
		StartAt:              record.GetDateTime("start_at").Time(),
		EndAt:                record.GetDateTime("end_at").Time(),
		RegistrationDeadline: record.GetDateTime("registration_deadline").Time(),
		EarlyBirdDeadline:    record.GetDateTime("early_bird_deadline").Time(),
		Capacity:             record.GetInt("capacity"),
		Price:                decimal.NewFromFloat(record.GetFloat("price")),
		EarlyBirdPrice:       decimal.NewFromFloat(record.GetFloat("early_bird_price")),
		IsFree:               record.GetBool("is_free"),
		HasEarlyBird:         record.GetBool("has_early_bird"),
		RequireApproval:      record.GetBool("require_approval"),
		CommunityChannelURL:  record.GetString("community_channel_url"),
		RegistrationFormID:   record.GetString("registration_form"),
		RegistrationsCount:   record.GetInt("registrations_count"),
		Status:               record.GetString("status"),
	}
}

// CaptureDraft validates the submitted answers against the event's form
// schema and either stores a draft (paid events, next step is payment) or
// finalizes immediately (free events).
func (s *RegistrationService) CaptureDraft(ctx context.Context, sid, eventID string, responses map[string]string) (*CaptureResult, error) {
	ev, err := s.Event(eventID)
	if err != nil {
		s.report(ctx, "registration-form", eventID, "", nil, err)
		return nil, err
	}

	if ev.Status != "published" {
		err := status.ErrEventNotPublished
		s.report(ctx, "registration-form", ev.ID, ev.Title, nil, err)
		return nil, err
	}

	now := time.Now()
	if !ev.RegistrationOpen(now) {
		err := status.ErrRegistrationClosed
		s.report(ctx, "registration-form", ev.ID, ev.Title, nil, err)
		return nil, err
	}
	if !ev.HasCapacity() {
		err := status.ErrEventFull
		s.report(ctx, "registration-form", ev.ID, ev.Title, nil, err)
		return nil, err
	}

	form, err := s.form(ev.RegistrationFormID)
	if err != nil {
		s.report(ctx, "registration-form", ev.ID, ev.Title, nil, err)
		return nil, err
	}

	if err := validateResponses(form, responses); err != nil {
		s.report(ctx, "registration-form", ev.ID, ev.Title, responses, err)
		return nil, err
	}

	if sid == "" {
		sid = utils.NewSessionToken()
	}

	draft := models.Draft{
		EventID:   ev.ID,
		FormID:    form.ID,
		Responses: responses,
	}

	// Free events skip the payment stage entirely.
	if ev.IsFree {
		finalized, err := s.Finalize(ctx, sid, draft, models.StatusApproved, "", nil)
		if err != nil {
			return nil, err
		}
		return &CaptureResult{
			SessionToken: sid,
			Next:         "confirmation",
			EventID:      ev.ID,
			Finalized:    finalized,
		}, nil
	}

	if err := s.sessions.StoreDraft(ctx, sid, draft); err != nil {
		s.report(ctx, "registration-session", ev.ID, ev.Title, draft, err)
		return nil, fmt.Errorf("%w: %v", status.ErrSubmissionFailed, err)
	}

	return &CaptureResult{
		SessionToken: sid,
		Next:         "payment",
		EventID:      ev.ID,
	}, nil
}

// FinalizeManual turns the stored draft into a pending submission carrying
// the collected manual payment details.
func (s *RegistrationService) FinalizeManual(ctx context.Context, sid, eventID string, details models.PaymentDetails) (*FinalizeResult, error) {
	draft, err := s.sessions.GetDraft(ctx, sid, eventID)
	if err != nil {
		s.report(ctx, "manual-payment", eventID, "", nil, err)
		return nil, err
	}
	return s.Finalize(ctx, sid, *draft, models.StatusPending, models.PaymentMethodManual, &details)
}

// FinalizeOnline finalizes a draft after the payment gateway confirmed the
// charge. The gateway reference encodes "session|event".
func (s *RegistrationService) FinalizeOnline(ctx context.Context, reference string, details models.PaymentDetails) (*FinalizeResult, error) {
	sid, eventID, ok := strings.Cut(reference, "|")
	if !ok || !utils.IsValidSessionToken(sid) {
		err := fmt.Errorf("%w: malformed charge reference", status.ErrSubmissionFailed)
		s.report(ctx, "online-payment", "", "", reference, err)
		return nil, err
	}

	draft, err := s.sessions.GetDraft(ctx, sid, eventID)
	if err != nil {
		s.report(ctx, "online-payment", eventID, "", nil, err)
		return nil, err
	}
	return s.Finalize(ctx, sid, *draft, models.StatusApproved, models.PaymentMethodOnline, &details)
}

// Finalize persists the submission record, then bumps the event's attendee
// counter with a separate statement. The two writes are deliberately not
// atomic: a failed counter update must never undo an accepted registration,
// so it is surfaced as a warning and reported to operators instead.
func (s *RegistrationService) Finalize(ctx context.Context, sid string, draft models.Draft, submissionStatus, method string, details *models.PaymentDetails) (*FinalizeResult, error) {
	collection, err := s.app.FindCollectionByNameOrId("form_submissions")
	if err != nil {
		s.report(ctx, "submission-finalizer", draft.EventID, "", draft, err)
		return nil, fmt.Errorf("%w: %v", status.ErrSubmissionFailed, err)
	}

	record := core.NewRecord(collection)
	record.Set("event", draft.EventID)
	record.Set("form", draft.FormID)
	record.Set("responses", draft.Responses)
	record.Set("status", submissionStatus)
	if method != "" {
		record.Set("payment_method", method)
	}
	if details != nil {
		record.Set("payment_details", details)
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		s.report(ctx, "submission-finalizer", draft.EventID, "", draft, err)
		return nil, fmt.Errorf("%w: %v", status.ErrSubmissionFailed, err)
	}

	result := &FinalizeResult{
		SubmissionID:   record.Id,
		Status:         submissionStatus,
		CounterUpdated: true,
	}

	_, err = s.app.DB().
		NewQuery("UPDATE events SET registrations_count = registrations_count + 1 WHERE id = {:id}").
		WithContext(ctx).
		Bind(dbx.Params{"id": draft.EventID}).
		Execute()
	if err != nil {
		monitoring.TrackCounterIncrementFailure()
		s.report(ctx, "submission-finalizer", draft.EventID, "", draft, err)
		result.CounterUpdated = false
		result.Warning = "registration saved, but the attendee counter could not be updated"
	}

	if err := s.sessions.ClearDraft(ctx, sid, draft.EventID); err != nil {
		slog.Warn("clear draft after finalize failed", "event_id", draft.EventID, "error", err)
	}
	if method != "" {
		if err := s.sessions.SetPaymentMethod(ctx, sid, draft.EventID, method); err != nil {
			slog.Warn("store payment method marker failed", "event_id", draft.EventID, "error", err)
		}
	}

	name, email := RespondentIdentity(draft.Responses)
	cc := models.ConfirmationContext{
		SubmissionID:  record.Id,
		EventID:       draft.EventID,
		Name:          name,
		Email:         email,
		Status:        submissionStatus,
		PaymentMethod: method,
	}
	if err := s.sessions.StoreConfirmation(ctx, sid, cc); err != nil {
		slog.Warn("store confirmation snapshot failed", "event_id", draft.EventID, "error", err)
	}

	monitoring.TrackRegistrationFinalized(draft.EventID, submissionStatus)
	slog.Info("registration finalized",
		"submission_id", record.Id,
		"event_id", draft.EventID,
		"status", submissionStatus,
		"payment_method", method,
		"counter_updated", result.CounterUpdated)

	return result, nil
}

// ReconcileCounters recomputes events.registrations_count from the actual
// submission rows. The finalizer's counter increment may fail without
// undoing a registration, so a periodic pass repairs any drift.
func (s *RegistrationService) ReconcileCounters(ctx context.Context) (int64, error) {
	result, err := s.app.DB().
		NewQuery("UPDATE events SET registrations_count = (SELECT COUNT(*) FROM form_submissions WHERE form_submissions.event = events.id)").
		WithContext(ctx).
		Execute()
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// FormForEvent returns the event's registration form schema.
func (s *RegistrationService) FormForEvent(ev *models.Event) (*models.RegistrationForm, error) {
	return s.form(ev.RegistrationFormID)
}

func (s *RegistrationService) form(formID string) (*models.RegistrationForm, error) {
	if formID == "" {
		return nil, status.ErrNoRegistrationForm
	}
	record, err := s.app.FindRecordById("registration_forms", formID)
	if err != nil {
		return nil, status.ErrNoRegistrationForm
	}

	form := &models.RegistrationForm{
		ID:    record.Id,
		Title: record.GetString("title"),
	}
	if err := record.UnmarshalJSONField("fields", &form.Fields); err != nil {
		return nil, fmt.Errorf("%w: unreadable field schema", status.ErrNoRegistrationForm)
	}
	return form, nil
}

func validateResponses(form *models.RegistrationForm, responses map[string]string) error {
	for _, field := range form.Fields {
		value := strings.TrimSpace(responses[field.Label])
		if field.Required && value == "" {
			return fmt.Errorf("%w: %s", status.ErrMissingAnswer, field.Label)
		}
		if field.Type == "select" && value != "" && !containsOption(field.Options, value) {
			return fmt.Errorf("%w: %s", status.ErrMissingAnswer, field.Label)
		}
	}
	return nil
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// RespondentIdentity pulls the respondent's name and email out of the form
// answers. Form schemas are free-form, so matching is by label convention.
func RespondentIdentity(responses map[string]string) (name, email string) {
	for label, value := range responses {
		l := strings.ToLower(strings.TrimSpace(label))
		switch {
		case l == "full name" || l == "name":
			name = strings.TrimSpace(value)
		case l == "email" || l == "email address":
			email = strings.TrimSpace(value)
		}
	}
	if name == "" || email == "" {
		for label, value := range responses {
			l := strings.ToLower(label)
			if name == "" && strings.Contains(l, "name") && !strings.Contains(l, "account") {
				name = strings.TrimSpace(value)
			}
			if email == "" && strings.Contains(l, "email") {
				email = strings.TrimSpace(value)
			}
		}
	}
	return name, email
}

func (s *RegistrationService) report(ctx context.Context, component, eventID, eventName string, draft any, err error) {
	s.reporter.Record(ctx, errreport.Report{
		Component: component,
		EventID:   eventID,
		EventName: eventName,
		Draft:     draft,
	}, err)
}
