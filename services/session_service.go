package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"craft-platform/internal/status"
	"craft-platform/models"

	"github.com/redis/go-redis/v9"
)

// SessionService is the server-held registration session store. Each
// session is a Redis hash keyed by an opaque token; drafts, payment-method
// markers and the confirmation snapshot live as fields inside it so the
// whole session expires together.
type SessionService struct {
	Redis     *redis.Client
	ttl       time.Duration
	dialogTTL time.Duration
}

func NewSessionService(redisClient *redis.Client, sessionTTL, dialogTTL time.Duration) *SessionService {
	return &SessionService{
		Redis:     redisClient,
		ttl:       sessionTTL,
		dialogTTL: dialogTTL,
	}
}

func sessionKey(sid string) string {
	return fmt.Sprintf("registration_session:%s", sid)
}

func draftField(eventID string) string {
	return fmt.Sprintf("event_registration_%s", eventID)
}

func paymentMethodField(eventID string) string {
	return fmt.Sprintf("payment_method_%s", eventID)
}

func confirmationField(eventID string) string {
	return fmt.Sprintf("confirmation_%s", eventID)
}

func dialogKey(sid, eventID string) string {
	return fmt.Sprintf("payment_dialog:%s:%s", sid, eventID)
}

// StoreDraft writes the draft and refreshes the session TTL.
func (s *SessionService) StoreDraft(ctx context.Context, sid string, draft models.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	key := sessionKey(sid)
	if err := s.Redis.HSet(ctx, key, draftField(draft.EventID), payload).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	s.Redis.Expire(ctx, key, s.ttl)
	return nil
}

// GetDraft returns the draft for the event, or ErrDraftNotFound.
func (s *SessionService) GetDraft(ctx context.Context, sid, eventID string) (*models.Draft, error) {
	raw, err := s.Redis.HGet(ctx, sessionKey(sid), draftField(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return &draft, nil
}

// ClearDraft removes the draft field. Clearing an absent draft is not an
// error.
func (s *SessionService) ClearDraft(ctx context.Context, sid, eventID string) error {
	return s.Redis.HDel(ctx, sessionKey(sid), draftField(eventID)).Err()
}

// SetPaymentMethod caches the method marker read by the confirmation stage.
func (s *SessionService) SetPaymentMethod(ctx context.Context, sid, eventID, method string) error {
	key := sessionKey(sid)
	if err := s.Redis.HSet(ctx, key, paymentMethodField(eventID), method).Err(); err != nil {
		return fmt.Errorf("set payment method: %w", err)
	}
	s.Redis.Expire(ctx, key, s.ttl)
	return nil
}

func (s *SessionService) GetPaymentMethod(ctx context.Context, sid, eventID string) (string, error) {
	method, err := s.Redis.HGet(ctx, sessionKey(sid), paymentMethodField(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return method, err
}

// StoreConfirmation leaves the post-finalization snapshot the confirmation
// page uses for the email.
func (s *SessionService) StoreConfirmation(ctx context.Context, sid string, cc models.ConfirmationContext) error {
	payload, err := json.Marshal(cc)
	if err != nil {
		return err
	}

	key := sessionKey(sid)
	if err := s.Redis.HSet(ctx, key, confirmationField(cc.EventID), payload).Err(); err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}
	s.Redis.Expire(ctx, key, s.ttl)
	return nil
}

func (s *SessionService) GetConfirmation(ctx context.Context, sid, eventID string) (*models.ConfirmationContext, error) {
	raw, err := s.Redis.HGet(ctx, sessionKey(sid), confirmationField(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get confirmation: %w", err)
	}

	var cc models.ConfirmationContext
	if err := json.Unmarshal([]byte(raw), &cc); err != nil {
		return nil, fmt.Errorf("get confirmation: %w", err)
	}
	return &cc, nil
}

// StoreDialog persists the manual payment dialog state.
func (s *SessionService) StoreDialog(ctx context.Context, sid string, state *CollectorState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, dialogKey(sid, state.EventID), payload, s.dialogTTL).Err()
}

// GetDialog returns the in-progress dialog state, or ErrDialogNotFound.
func (s *SessionService) GetDialog(ctx context.Context, sid, eventID string) (*CollectorState, error) {
	raw, err := s.Redis.Get(ctx, dialogKey(sid, eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrDialogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dialog: %w", err)
	}

	var state CollectorState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("get dialog: %w", err)
	}
	return &state, nil
}

func (s *SessionService) ClearDialog(ctx context.Context, sid, eventID string) error {
	return s.Redis.Del(ctx, dialogKey(sid, eventID)).Err()
}
