package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvent_EffectivePrice(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	event := Event{
		Price:             decimal.NewFromInt(200),
		EarlyBirdPrice:    decimal.NewFromInt(150),
		HasEarlyBird:      true,
		EarlyBirdDeadline: now.Add(24 * time.Hour),
	}

	assert.True(t, event.EffectivePrice(now).Equal(decimal.NewFromInt(150)), "before the early-bird deadline")

	after := now.Add(48 * time.Hour)
	assert.True(t, event.EffectivePrice(after).Equal(decimal.NewFromInt(200)), "after the early-bird deadline")

	event.HasEarlyBird = false
	assert.True(t, event.EffectivePrice(now).Equal(decimal.NewFromInt(200)), "early bird disabled")

	event.IsFree = true
	assert.True(t, event.EffectivePrice(now).IsZero(), "free events always cost zero")
}

func TestEvent_RegistrationOpen(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{
			name: "open before deadline",
			event: Event{
				Status:               "published",
				StartAt:              now.Add(72 * time.Hour),
				RegistrationDeadline: now.Add(24 * time.Hour),
			},
			want: true,
		},
		{
			name: "closed after deadline",
			event: Event{
				Status:               "published",
				StartAt:              now.Add(72 * time.Hour),
				RegistrationDeadline: now.Add(-time.Hour),
			},
			want: false,
		},
		{
			name: "no deadline stays open until the event starts",
			event: Event{
				Status:  "published",
				StartAt: now.Add(time.Hour),
			},
			want: true,
		},
		{
			name: "no deadline closes at event start",
			event: Event{
				Status:  "published",
				StartAt: now.Add(-time.Minute),
			},
			want: false,
		},
		{
			name: "draft events never accept registrations",
			event: Event{
				Status:               "draft",
				StartAt:              now.Add(72 * time.Hour),
				RegistrationDeadline: now.Add(24 * time.Hour),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.RegistrationOpen(now))
		})
	}
}

func TestEvent_HasCapacity(t *testing.T) {
	assert.True(t, (&Event{Capacity: 0, RegistrationsCount: 9999}).HasCapacity(), "zero capacity means unlimited")
	assert.True(t, (&Event{Capacity: 100, RegistrationsCount: 99}).HasCapacity())
	assert.False(t, (&Event{Capacity: 100, RegistrationsCount: 100}).HasCapacity())
	assert.False(t, (&Event{Capacity: 100, RegistrationsCount: 150}).HasCapacity())
}
