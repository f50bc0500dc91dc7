package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"craft-platform/internal/gateway/momo"
	"craft-platform/internal/status"
	"craft-platform/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	payments *services.PaymentService
	gateway  *momo.Gateway
	hmacKey  string
}

// NewPaymentHandler builds the payment endpoints. gateway may be nil when
// online payments are disabled; the webhook then rejects every call.
func NewPaymentHandler(payments *services.PaymentService, gateway *momo.Gateway, hmacKey string) *PaymentHandler {
	return &PaymentHandler{payments: payments, gateway: gateway, hmacKey: hmacKey}
}

// Methods lists the available payment methods for the event's draft.
func (h *PaymentHandler) Methods(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	methods, err := h.payments.Methods(e.Request.Context(), sid, eventID)
	if err != nil {
		if errors.Is(err, status.ErrDraftNotFound) {
			return sessionLost(e, eventID)
		}
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"methods": methods})
}

// StartManual opens the manual mobile-money dialog.
func (h *PaymentHandler) StartManual(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	state, err := h.payments.StartDialog(e.Request.Context(), sid, eventID)
	if err != nil {
		if errors.Is(err, status.ErrDraftNotFound) {
			return sessionLost(e, eventID)
		}
		return apiError(err)
	}
	return e.JSON(http.StatusOK, state)
}

// AdvanceManual moves the dialog forward, finalizing the registration when
// the submit step is reached.
func (h *PaymentHandler) AdvanceManual(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	var in services.CollectorInput
	if err := e.BindBody(&in); err != nil {
		return apiError(err)
	}

	result, err := h.payments.Advance(e.Request.Context(), sid, eventID, in)
	if err != nil {
		if errors.Is(err, status.ErrDialogNotFound) || errors.Is(err, status.ErrDraftNotFound) {
			return sessionLost(e, eventID)
		}
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}

// BackManual steps the dialog backwards.
func (h *PaymentHandler) BackManual(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	state, err := h.payments.Back(e.Request.Context(), sid, eventID)
	if err != nil {
		if errors.Is(err, status.ErrDialogNotFound) {
			return sessionLost(e, eventID)
		}
		return apiError(err)
	}
	return e.JSON(http.StatusOK, state)
}

// StartOnline creates a gateway charge for the draft.
func (h *PaymentHandler) StartOnline(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	var req struct {
		Phone string `json:"phone"`
	}
	if err := e.BindBody(&req); err != nil {
		return apiError(err)
	}

	chargeID, err := h.payments.StartOnlineCharge(e.Request.Context(), sid, eventID, req.Phone)
	if err != nil {
		if errors.Is(err, status.ErrDraftNotFound) {
			return sessionLost(e, eventID)
		}
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"charge_id": chargeID})
}

// GatewayWebhook receives transaction notifications pushed over HTTP by the
// payment provider. The body is HMAC-signed; the shared secret is checked
// separately so a leaked signing key alone is not enough.
func (h *PaymentHandler) GatewayWebhook(e *core.RequestEvent) error {
	if h.gateway == nil {
		return apis.NewNotFoundError("", nil)
	}

	if !h.gateway.VerifyWebhookSecret(e.Request.Header.Get("X-Webhook-Secret")) {
		return apis.NewUnauthorizedError("Invalid webhook credentials.", nil)
	}

	body, err := io.ReadAll(io.LimitReader(e.Request.Body, 1<<20))
	if err != nil {
		return apis.NewBadRequestError("Unreadable payload.", err)
	}
	if !momo.VerifySignature(body, []byte(h.hmacKey), e.Request.Header.Get("X-Signature")) {
		return apis.NewUnauthorizedError("Invalid payload signature.", nil)
	}

	var txn momo.Transaction
	if err := json.Unmarshal(body, &txn); err != nil {
		return apis.NewBadRequestError("Malformed transaction payload.", err)
	}

	result, err := h.payments.SettleTransaction(e.Request.Context(), &txn)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, result)
}
