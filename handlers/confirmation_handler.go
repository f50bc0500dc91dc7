package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"craft-platform/config"
	"craft-platform/internal/countdown"
	"craft-platform/internal/status"
	"craft-platform/monitoring"
	"craft-platform/services"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// ConfirmationHandler serves the post-registration confirmation stage: the
// confirmation email, and the countdown that redirects attendees into the
// event's community channel. The countdown is a real server-side timer the
// attendee can pre-empt or cancel, which keeps "join now" and the automatic
// redirect from racing each other.
type ConfirmationHandler struct {
	cfg           *config.Config
	registrations *services.RegistrationService
	sessions      *services.SessionService
	notifier      *services.NotificationService
	registry      *countdown.Registry
}

func NewConfirmationHandler(cfg *config.Config, registrations *services.RegistrationService, sessions *services.SessionService, notifier *services.NotificationService, registry *countdown.Registry) *ConfirmationHandler {
	return &ConfirmationHandler{
		cfg:           cfg,
		registrations: registrations,
		sessions:      sessions,
		notifier:      notifier,
		registry:      registry,
	}
}

func countdownKey(sid, eventID string) string {
	return sid + ":" + eventID
}

// Show renders the confirmation page data. Arriving here with a completed
// registration sends the email and, for events with a community channel,
// arms the redirect countdown.
func (h *ConfirmationHandler) Show(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	ev, err := h.registrations.Event(eventID)
	if err != nil {
		return apiError(err)
	}

	ctx := e.Request.Context()
	resp := map[string]any{
		"event_id":    ev.ID,
		"event_title": ev.Title,
		"email_sent":  false,
		"has_channel": ev.CommunityChannelURL != "",
	}

	cc, err := h.sessions.GetConfirmation(ctx, sid, eventID)
	if err != nil {
		if errors.Is(err, status.ErrDraftNotFound) {
			resp["warning"] = "no recent registration found for this event"
			return e.JSON(http.StatusOK, resp)
		}
		return apiError(err)
	}
	resp["status"] = cc.Status
	resp["payment_method"] = cc.PaymentMethod

	if cc.EmailSent {
		// Reload of an already-confirmed registration; the email went out
		// the first time around.
		resp["email_sent"] = true
	} else if err := h.notifier.SendRegistrationEmail(ctx, ev, cc); err != nil {
		slog.Warn("confirmation email failed", "event_id", ev.ID, "error", err)
		resp["warning"] = "we could not send your confirmation email; your registration is still recorded"
	} else {
		resp["email_sent"] = true
		cc.EmailSent = true
		if err := h.sessions.StoreConfirmation(ctx, sid, *cc); err != nil {
			slog.Warn("persist confirmation email marker failed", "event_id", ev.ID, "error", err)
		}
	}

	if ev.CommunityChannelURL != "" {
		key := countdownKey(sid, eventID)
		h.registry.Put(key, countdown.New(h.cfg.RedirectDelay, h.cfg.CountdownSeconds, func() {
			slog.Info("community redirect countdown fired", "event_id", ev.ID)
		}))
		monitoring.SetRedirectCountdowns(h.registry.Len())
		resp["countdown_seconds"] = h.cfg.CountdownSeconds
	}

	return e.JSON(http.StatusOK, resp)
}

// RedirectState reports the countdown for polling clients. The channel URL
// is only released once the countdown has fired.
func (h *ConfirmationHandler) RedirectState(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	c, ok := h.registry.Get(countdownKey(sid, eventID))
	if !ok {
		return e.JSON(http.StatusOK, map[string]any{"active": false})
	}

	resp := map[string]any{
		"active":    !c.Fired() && !c.Cancelled(),
		"remaining": c.Remaining(),
		"fired":     c.Fired(),
	}
	if c.Fired() {
		ev, err := h.registrations.Event(eventID)
		if err != nil {
			return apiError(err)
		}
		resp["channel_url"] = ev.CommunityChannelURL
	}
	return e.JSON(http.StatusOK, resp)
}

// Join is the "join now" button: it cancels the pending countdown first,
// then hands out the channel URL, so the client never gets redirected twice.
func (h *ConfirmationHandler) Join(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	ev, err := h.registrations.Event(eventID)
	if err != nil {
		return apiError(err)
	}
	if ev.CommunityChannelURL == "" {
		return apis.NewNotFoundError("This event has no community channel.", nil)
	}

	key := countdownKey(sid, eventID)
	if c, ok := h.registry.Get(key); ok {
		c.Cancel()
		h.registry.Remove(key)
		monitoring.SetRedirectCountdowns(h.registry.Len())
	}

	return e.JSON(http.StatusOK, map[string]string{"channel_url": ev.CommunityChannelURL})
}

// CancelRedirect stops the automatic redirect for attendees who want to
// stay on the confirmation page.
func (h *ConfirmationHandler) CancelRedirect(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	sid := sessionToken(e)
	if sid == "" {
		return sessionLost(e, eventID)
	}

	key := countdownKey(sid, eventID)
	cancelled := false
	if c, ok := h.registry.Get(key); ok {
		cancelled = c.Cancel()
		h.registry.Remove(key)
		monitoring.SetRedirectCountdowns(h.registry.Len())
	}
	return e.JSON(http.StatusOK, map[string]bool{"cancelled": cancelled})
}
