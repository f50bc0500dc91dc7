package handlers

import (
	"net/http"
	"strconv"
	"time"

	"craft-platform/models"
	"craft-platform/services"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

const eventsPageSize = 20

type EventHandler struct {
	app           core.App
	registrations *services.RegistrationService
}

func NewEventHandler(app core.App, registrations *services.RegistrationService) *EventHandler {
	return &EventHandler{app: app, registrations: registrations}
}

type eventListItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Theme          string `json:"theme"`
	StartAt        string `json:"start_at"`
	EndAt          string `json:"end_at"`
	IsFree         bool   `json:"is_free"`
	EffectivePrice string `json:"effective_price"`
	EarlyBird      bool   `json:"early_bird"`
	SpotsLeft      *int   `json:"spots_left,omitempty"` // nil = unlimited
	Open           bool   `json:"registration_open"`
}

// List returns published events, upcoming first.
func (h *EventHandler) List(e *core.RequestEvent) error {
	page, _ := strconv.Atoi(e.Request.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	records, err := h.app.FindRecordsByFilter(
		"events",
		"status = {:status}",
		"-start_at",
		eventsPageSize,
		(page-1)*eventsPageSize,
		dbx.Params{"status": "published"},
	)
	if err != nil {
		return apis.NewInternalServerError("Could not load events.", err)
	}

	total, err := h.app.CountRecords("events", dbx.HashExp{"status": "published"})
	if err != nil {
		return apis.NewInternalServerError("Could not load events.", err)
	}

	now := time.Now()
	items := make([]eventListItem, 0, len(records))
	for _, record := range records {
		items = append(items, toListItem(services.EventFromRecord(record), now))
	}

	return e.JSON(http.StatusOK, map[string]any{
		"page":   page,
		"total":  total,
		"events": items,
	})
}

// Get returns a published event's detail payload, including the effective
// price at request time.
func (h *EventHandler) Get(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	ev, err := h.registrations.Event(eventID)
	if err != nil || ev.Status != "published" {
		return apis.NewNotFoundError("Event not found.", err)
	}

	now := time.Now()
	resp := map[string]any{
		"id":                    ev.ID,
		"title":                 ev.Title,
		"theme":                 ev.Theme,
		"description":           ev.Description,
		"start_at":              ev.StartAt,
		"end_at":                ev.EndAt,
		"registration_deadline": ev.RegistrationDeadline,
		"is_free":               ev.IsFree,
		"effective_price":       ev.EffectivePrice(now).StringFixed(2),
		"early_bird":            ev.HasEarlyBird && now.Before(ev.EarlyBirdDeadline),
		"registration_open":     ev.RegistrationOpen(now),
		"has_capacity":          ev.HasCapacity(),
	}
	if ev.Capacity > 0 {
		left := ev.Capacity - ev.RegistrationsCount
		if left < 0 {
			left = 0
		}
		resp["spots_left"] = left
	}
	return e.JSON(http.StatusOK, resp)
}

func toListItem(ev *models.Event, now time.Time) eventListItem {
	item := eventListItem{
		ID:             ev.ID,
		Title:          ev.Title,
		Theme:          ev.Theme,
		StartAt:        ev.StartAt.Format(time.RFC3339),
		EndAt:          ev.EndAt.Format(time.RFC3339),
		IsFree:         ev.IsFree,
		EffectivePrice: ev.EffectivePrice(now).StringFixed(2),
		EarlyBird:      ev.HasEarlyBird && now.Before(ev.EarlyBirdDeadline),
		Open:           ev.RegistrationOpen(now),
	}
	if ev.Capacity > 0 {
		left := ev.Capacity - ev.RegistrationsCount
		if left < 0 {
			left = 0
		}
		item.SpotsLeft = &left
	}
	return item
}
