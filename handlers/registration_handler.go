package handlers

import (
	"net/http"

	"craft-platform/internal/status"
	"craft-platform/services"

	"github.com/pocketbase/pocketbase/core"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// Register captures a registration form submission. Paid events get a
// draft and are pointed at the payment stage; free events are finalized in
// the same call.
func (h *RegistrationHandler) Register(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	var req struct {
		Responses map[string]string `json:"responses"`
	}
	if err := e.BindBody(&req); err != nil {
		return apiError(err)
	}
	if len(req.Responses) == 0 {
		return apiError(status.ErrMissingAnswer)
	}

	result, err := h.registrations.CaptureDraft(e.Request.Context(), sessionToken(e), eventID, req.Responses)
	if err != nil {
		return apiError(err)
	}

	e.Response.Header().Set(SessionHeader, result.SessionToken)
	return e.JSON(http.StatusOK, result)
}

// Form returns the registration form schema for an event so the client can
// render it.
func (h *RegistrationHandler) Form(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	ev, err := h.registrations.Event(eventID)
	if err != nil || ev.Status != "published" {
		if err == nil {
			err = status.ErrEventNotPublished
		}
		return apiError(err)
	}

	form, err := h.registrations.FormForEvent(ev)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, form)
}
