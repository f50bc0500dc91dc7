package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"craft-platform/models"
	"craft-platform/services"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

const adminPageSize = 50

// AdminHandler is the back-office surface: reviewing manual payments,
// reviewing donations and the dashboard. All endpoints require an
// authenticated admins record or a superuser token.
type AdminHandler struct {
	app           core.App
	registrations *services.RegistrationService
	notifier      *services.NotificationService
}

func NewAdminHandler(app core.App, registrations *services.RegistrationService, notifier *services.NotificationService) *AdminHandler {
	return &AdminHandler{app: app, registrations: registrations, notifier: notifier}
}

func (h *AdminHandler) requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required.", nil)
	}
	if e.Auth.IsSuperuser() || e.Auth.Collection().Name == "admins" {
		return nil
	}
	return apis.NewForbiddenError("Administrator access required.", nil)
}

// Dashboard returns the review workload and per-event registration counts.
func (h *AdminHandler) Dashboard(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	pendingSubmissions, err := h.app.CountRecords("form_submissions", dbx.HashExp{"status": models.StatusPending})
	if err != nil {
		return apis.NewInternalServerError("Could not load dashboard.", err)
	}
	pendingDonations, err := h.app.CountRecords("donations", dbx.HashExp{"status": models.StatusPending})
	if err != nil {
		return apis.NewInternalServerError("Could not load dashboard.", err)
	}

	events, err := h.app.FindRecordsByFilter("events", "status != {:status}", "-start_at", 100, 0, dbx.Params{"status": "archived"})
	if err != nil {
		return apis.NewInternalServerError("Could not load dashboard.", err)
	}

	eventStats := make([]map[string]any, 0, len(events))
	for _, record := range events {
		ev := services.EventFromRecord(record)
		eventStats = append(eventStats, map[string]any{
			"id":            ev.ID,
			"title":         ev.Title,
			"status":        ev.Status,
			"start_at":      ev.StartAt,
			"registrations": ev.RegistrationsCount,
			"capacity":      ev.Capacity,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"pending_submissions": pendingSubmissions,
		"pending_donations":   pendingDonations,
		"events":              eventStats,
	})
}

// ListSubmissions lists registrations for review, filterable by status and
// event.
func (h *AdminHandler) ListSubmissions(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	query := e.Request.URL.Query()
	filter := "id != ''"
	params := dbx.Params{}
	if s := query.Get("status"); s != "" {
		filter += " && status = {:status}"
		params["status"] = s
	}
	if ev := query.Get("event"); ev != "" {
		filter += " && event = {:event}"
		params["event"] = ev
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}

	records, err := h.app.FindRecordsByFilter("form_submissions", filter, "-created", adminPageSize, (page-1)*adminPageSize, params)
	if err != nil {
		return apis.NewInternalServerError("Could not load submissions.", err)
	}

	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, submissionPayload(record))
	}
	return e.JSON(http.StatusOK, map[string]any{"page": page, "submissions": items})
}

// ReviewSubmission approves or rejects a pending registration and emails
// the respondent the outcome.
func (h *AdminHandler) ReviewSubmission(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	record, err := h.app.FindRecordById("form_submissions", e.Request.PathValue("submissionId"))
	if err != nil {
		return apis.NewNotFoundError("Submission not found.", err)
	}

	newStatus, err := h.reviewAction(e)
	if err != nil {
		return err
	}
	if record.GetString("status") != models.StatusPending {
		return apis.NewBadRequestError("This submission has already been reviewed.", nil)
	}

	record.Set("status", newStatus)
	record.Set("reviewed_by", e.Auth.Id)
	record.Set("reviewed_at", time.Now())
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewInternalServerError("Could not save the review.", err)
	}

	h.emailReviewOutcome(e, record, newStatus)

	return e.JSON(http.StatusOK, submissionPayload(record))
}

// ListDonations lists donations for review.
func (h *AdminHandler) ListDonations(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	query := e.Request.URL.Query()
	filter := "id != ''"
	params := dbx.Params{}
	if s := query.Get("status"); s != "" {
		filter += " && status = {:status}"
		params["status"] = s
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}

	records, err := h.app.FindRecordsByFilter("donations", filter, "-created", adminPageSize, (page-1)*adminPageSize, params)
	if err != nil {
		return apis.NewInternalServerError("Could not load donations.", err)
	}

	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, map[string]any{
			"id":             record.Id,
			"reference":      record.GetString("reference"),
			"donor_name":     record.GetString("donor_name"),
			"donor_email":    record.GetString("donor_email"),
			"amount":         record.GetFloat("amount"),
			"currency":       record.GetString("currency"),
			"frequency":      record.GetString("frequency"),
			"payment_method": record.GetString("payment_method"),
			"status":         record.GetString("status"),
			"created":        record.GetDateTime("created").Time(),
		})
	}
	return e.JSON(http.StatusOK, map[string]any{"page": page, "donations": items})
}

// ReviewDonation approves or rejects a pending donation and emails the
// donor the outcome.
func (h *AdminHandler) ReviewDonation(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	record, err := h.app.FindRecordById("donations", e.Request.PathValue("donationId"))
	if err != nil {
		return apis.NewNotFoundError("Donation not found.", err)
	}

	newStatus, err := h.reviewAction(e)
	if err != nil {
		return err
	}
	if record.GetString("status") != models.StatusPending {
		return apis.NewBadRequestError("This donation has already been reviewed.", nil)
	}

	record.Set("status", newStatus)
	record.Set("reviewed_by", e.Auth.Id)
	record.Set("reviewed_at", time.Now())
	if err := h.app.SaveWithContext(e.Request.Context(), record); err != nil {
		return apis.NewInternalServerError("Could not save the review.", err)
	}

	if newStatus == models.StatusApproved {
		receipt := services.DonationReceipt{
			DonationID: record.Id,
			Reference:  record.GetString("reference"),
			Name:       record.GetString("donor_name"),
			Email:      record.GetString("donor_email"),
			Amount:     decimal.NewFromFloat(record.GetFloat("amount")),
			Currency:   record.GetString("currency"),
			Frequency:  record.GetString("frequency"),
			Status:     newStatus,
			Date:       time.Now(),
		}
		if err := h.notifier.SendDonationEmail(e.Request.Context(), receipt); err != nil {
			slog.Warn("donation review email failed", "donation_id", record.Id, "error", err)
		}
	}

	return e.JSON(http.StatusOK, map[string]string{
		"id":     record.Id,
		"status": newStatus,
	})
}

func (h *AdminHandler) reviewAction(e *core.RequestEvent) (string, error) {
	var req struct {
		Action string `json:"action"`
	}
	if err := e.BindBody(&req); err != nil {
		return "", apis.NewBadRequestError("Invalid review payload.", err)
	}
	switch req.Action {
	case "approve":
		return models.StatusApproved, nil
	case "reject":
		return models.StatusRejected, nil
	default:
		return "", apis.NewBadRequestError(fmt.Sprintf("Unknown review action %q.", req.Action), nil)
	}
}

func (h *AdminHandler) emailReviewOutcome(e *core.RequestEvent, record *core.Record, newStatus string) {
	var responses map[string]string
	if err := record.UnmarshalJSONField("responses", &responses); err != nil {
		return
	}
	name, email := services.RespondentIdentity(responses)
	if email == "" {
		return
	}

	ev, err := h.registrations.Event(record.GetString("event"))
	if err != nil {
		return
	}

	cc := &models.ConfirmationContext{
		SubmissionID: record.Id,
		EventID:      ev.ID,
		Name:         name,
		Email:        email,
		Status:       newStatus,
	}
	if newStatus == models.StatusApproved {
		if err := h.notifier.SendRegistrationEmail(e.Request.Context(), ev, cc); err != nil {
			slog.Warn("review outcome email failed", "submission_id", record.Id, "error", err)
		}
	}
}

func submissionPayload(record *core.Record) map[string]any {
	var responses map[string]string
	_ = record.UnmarshalJSONField("responses", &responses)

	var details *models.PaymentDetails
	if raw := record.GetString("payment_details"); raw != "" {
		details = &models.PaymentDetails{}
		_ = record.UnmarshalJSONField("payment_details", details)
	}

	return map[string]any{
		"id":              record.Id,
		"event":           record.GetString("event"),
		"responses":       responses,
		"status":          record.GetString("status"),
		"payment_method":  record.GetString("payment_method"),
		"payment_details": details,
		"reviewed_by":     record.GetString("reviewed_by"),
		"reviewed_at":     record.GetDateTime("reviewed_at").Time(),
		"created":         record.GetDateTime("created").Time(),
	}
}
