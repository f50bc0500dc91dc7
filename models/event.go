package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Theme                string          `json:"theme"`
	Description          string          `json:"description"`
	StartAt              time.Time       `json:"start_at"`
	EndAt                time.Time       `json:"end_at"`
	RegistrationDeadline time.Time       `json:"registration_deadline"`
	EarlyBirdDeadline    time.Time       `json:"early_bird_deadline"`
	Capacity             int             `json:"capacity"` // 0 = unlimited
	Price                decimal.Decimal `json:"price"`
	EarlyBirdPrice       decimal.Decimal `json:"early_bird_price"`
	IsFree               bool            `json:"is_free"`
	HasEarlyBird         bool            `json:"has_early_bird"`
	RequireApproval      bool            `json:"require_approval"`
	CommunityChannelURL  string          `json:"community_channel_url"`
	RegistrationFormID   string          `json:"registration_form_id"`
	RegistrationsCount   int             `json:"registrations_count"`
	Status               string          `json:"status"` // draft, published, archived
}

// EffectivePrice returns the price a registrant pays at the given time.
// Early-bird pricing applies only while the early-bird deadline has not
// passed.
func (e *Event) EffectivePrice(now time.Time) decimal.Decimal {
	if e.IsFree {
		return decimal.Zero
	}
	if e.HasEarlyBird && !e.EarlyBirdDeadline.IsZero() && now.Before(e.EarlyBirdDeadline) {
		return e.EarlyBirdPrice
	}
	return e.Price
}

// RegistrationOpen reports whether new registrations are accepted at the
// given time. A zero deadline means registration stays open until the event
// starts.
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.Status != "published" {
		return false
	}
	if !e.RegistrationDeadline.IsZero() {
		return now.Before(e.RegistrationDeadline)
	}
	return now.Before(e.StartAt)
}

// HasCapacity reports whether the event can take one more registration.
func (e *Event) HasCapacity() bool {
	return e.Capacity == 0 || e.RegistrationsCount < e.Capacity
}

type FormField struct {
	Label    string   `json:"label"`
	Type     string   `json:"type"` // text, email, phone, select, textarea
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type RegistrationForm struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Fields []FormField `json:"fields"`
}
