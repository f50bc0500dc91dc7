package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"craft-platform/internal/status"
	"craft-platform/models"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSessionService() (*SessionService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewSessionService(db, 30*time.Minute, 15*time.Minute), mock
}

func TestSessionService_StoreAndGetDraft(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	ctx := context.Background()
	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	draft := models.Draft{
		EventID: "evt1",
		FormID:  "form1",
		Responses: map[string]string{
			"Full Name": "Ama Owusu",
			"Email":     "ama@example.com",
		},
	}
	payload, err := json.Marshal(draft)
	require.NoError(t, err)

	mock.ExpectHSet("registration_session:"+sid, "event_registration_evt1", payload).SetVal(1)
	mock.ExpectExpire("registration_session:"+sid, 30*time.Minute).SetVal(true)

	require.NoError(t, service.StoreDraft(ctx, sid, draft))

	mock.ExpectHGet("registration_session:"+sid, "event_registration_evt1").SetVal(string(payload))

	got, err := service.GetDraft(ctx, sid, "evt1")
	require.NoError(t, err)
	assert.Equal(t, draft.EventID, got.EventID)
	assert.Equal(t, "Ama Owusu", got.Responses["Full Name"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_GetDraft_Expired(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	mock.ExpectHGet("registration_session:"+sid, "event_registration_evt1").RedisNil()

	_, err := service.GetDraft(context.Background(), sid, "evt1")
	assert.ErrorIs(t, err, status.ErrDraftNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_ClearDraft_MissingIsNoError(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	mock.ExpectHDel("registration_session:"+sid, "event_registration_evt1").SetVal(0)

	assert.NoError(t, service.ClearDraft(context.Background(), sid, "evt1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_PaymentMethodMarker(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	ctx := context.Background()
	sid := "sess_0123456789abcdef0123456789abcdef01234567"

	mock.ExpectHSet("registration_session:"+sid, "payment_method_evt1", "manual").SetVal(1)
	mock.ExpectExpire("registration_session:"+sid, 30*time.Minute).SetVal(true)
	require.NoError(t, service.SetPaymentMethod(ctx, sid, "evt1", "manual"))

	mock.ExpectHGet("registration_session:"+sid, "payment_method_evt1").SetVal("manual")
	method, err := service.GetPaymentMethod(ctx, sid, "evt1")
	require.NoError(t, err)
	assert.Equal(t, "manual", method)

	// An absent marker reads back empty, not as an error.
	mock.ExpectHGet("registration_session:"+sid, "payment_method_evt2").RedisNil()
	method, err = service.GetPaymentMethod(ctx, sid, "evt2")
	require.NoError(t, err)
	assert.Empty(t, method)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_DialogRoundTrip(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	ctx := context.Background()
	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	state := NewCollectorState("evt1", decimal.NewFromInt(150))
	payload, err := json.Marshal(state)
	require.NoError(t, err)

	mock.ExpectSet("payment_dialog:"+sid+":evt1", payload, 15*time.Minute).SetVal("OK")
	require.NoError(t, service.StoreDialog(ctx, sid, state))

	mock.ExpectGet("payment_dialog:" + sid + ":evt1").SetVal(string(payload))
	got, err := service.GetDialog(ctx, sid, "evt1")
	require.NoError(t, err)
	assert.Equal(t, StepPayment, got.Step)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))

	mock.ExpectDel("payment_dialog:" + sid + ":evt1").SetVal(1)
	require.NoError(t, service.ClearDialog(ctx, sid, "evt1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_GetDialog_Missing(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	mock.ExpectGet("payment_dialog:" + sid + ":evt1").RedisNil()

	_, err := service.GetDialog(context.Background(), sid, "evt1")
	assert.ErrorIs(t, err, status.ErrDialogNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionService_ConfirmationSnapshot(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	ctx := context.Background()
	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	cc := models.ConfirmationContext{
		SubmissionID:  "sub1",
		EventID:       "evt1",
		Name:          "Ama Owusu",
		Email:         "ama@example.com",
		Status:        models.StatusPending,
		PaymentMethod: models.PaymentMethodManual,
	}
	payload, err := json.Marshal(cc)
	require.NoError(t, err)

	mock.ExpectHSet("registration_session:"+sid, "confirmation_evt1", payload).SetVal(1)
	mock.ExpectExpire("registration_session:"+sid, 30*time.Minute).SetVal(true)
	require.NoError(t, service.StoreConfirmation(ctx, sid, cc))

	mock.ExpectHGet("registration_session:"+sid, "confirmation_evt1").SetVal(string(payload))
	got, err := service.GetConfirmation(ctx, sid, "evt1")
	require.NoError(t, err)
	assert.Equal(t, "sub1", got.SubmissionID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.False(t, got.EmailSent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// The confirmation page re-stores the snapshot with EmailSent set after the
// first successful send. A reload that reads the snapshot back must see the
// marker, so the email goes out only once per finalized registration.
func TestSessionService_ConfirmationEmailSentMarkerSurvivesReload(t *testing.T) {
	service, mock := setupTestSessionService()
	defer mock.ClearExpect()

	ctx := context.Background()
	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	cc := models.ConfirmationContext{
		SubmissionID: "sub1",
		EventID:      "evt1",
		Name:         "Ama Owusu",
		Email:        "ama@example.com",
		Status:       models.StatusApproved,
		EmailSent:    true,
	}
	payload, err := json.Marshal(cc)
	require.NoError(t, err)

	mock.ExpectHSet("registration_session:"+sid, "confirmation_evt1", payload).SetVal(1)
	mock.ExpectExpire("registration_session:"+sid, 30*time.Minute).SetVal(true)
	require.NoError(t, service.StoreConfirmation(ctx, sid, cc))

	mock.ExpectHGet("registration_session:"+sid, "confirmation_evt1").SetVal(string(payload))
	got, err := service.GetConfirmation(ctx, sid, "evt1")
	require.NoError(t, err)
	assert.True(t, got.EmailSent)

	assert.NoError(t, mock.ExpectationsWereMet())
}
