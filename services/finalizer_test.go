package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"craft-platform/models"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupFinalizerApp boots a throwaway PocketBase app carrying the workflow
// collections plus one published event with a two-field form, and wires the
// registration service to a redis mock. Session bookkeeping failures are
// logged and swallowed by the finalizer, so tests that do not care about
// redis leave the mock without expectations.
func setupFinalizerApp(t *testing.T, isFree bool) (*tests.TestApp, *RegistrationService, redismock.ClientMock, string, string) {
	t.Helper()

	app, err := tests.NewTestApp()
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	forms := core.NewBaseCollection("registration_forms")
	forms.Fields.Add(
		&core.TextField{Name: "title", Required: true, Max: 200},
		&core.JSONField{Name: "fields", Required: true, MaxSize: 51200},
	)
	require.NoError(t, app.Save(forms))

	events := core.NewBaseCollection("events")
	events.Fields.Add(
		&core.TextField{Name: "title", Required: true, Max: 200},
		&core.DateField{Name: "start_at", Required: true},
		&core.DateField{Name: "registration_deadline"},
		&core.NumberField{Name: "capacity", OnlyInt: true, Min: types.Pointer(0.0)},
		&core.NumberField{Name: "price", Min: types.Pointer(0.0)},
		&core.BoolField{Name: "is_free"},
		&core.RelationField{Name: "registration_form", CollectionId: forms.Id, MaxSelect: 1},
		&core.NumberField{Name: "registrations_count", OnlyInt: true, Min: types.Pointer(0.0)},
		&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"draft", "published", "archived"}},
	)
	require.NoError(t, app.Save(events))

	submissions := core.NewBaseCollection("form_submissions")
	submissions.Fields.Add(
		&core.RelationField{Name: "event", Required: true, CollectionId: events.Id, MaxSelect: 1},
		&core.RelationField{Name: "form", CollectionId: forms.Id, MaxSelect: 1},
		&core.JSONField{Name: "responses", Required: true, MaxSize: 51200},
		&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"pending", "approved", "rejected"}},
		&core.SelectField{Name: "payment_method", MaxSelect: 1, Values: []string{"manual", "online"}},
		&core.JSONField{Name: "payment_details", MaxSize: 10240},
	)
	require.NoError(t, app.Save(submissions))

	form := core.NewRecord(forms)
	form.Set("title", "Workshop Registration")
	form.Set("fields", []models.FormField{
		{Label: "Full Name", Type: "text", Required: true},
		{Label: "Email Address", Type: "email", Required: true},
	})
	require.NoError(t, app.Save(form))

	event := core.NewRecord(events)
	event.Set("title", "Research Methods Workshop")
	event.Set("start_at", time.Now().Add(30*24*time.Hour))
	event.Set("registration_deadline", time.Now().Add(20*24*time.Hour))
	event.Set("is_free", isFree)
	if !isFree {
		event.Set("price", 150.0)
	}
	event.Set("registration_form", form.Id)
	event.Set("status", "published")
	require.NoError(t, app.Save(event))

	db, mock := redismock.NewClientMock()
	sessions := NewSessionService(db, 30*time.Minute, 15*time.Minute)
	service := NewRegistrationService(app, sessions, nil)

	return app, service, mock, form.Id, event.Id
}

func eventCounter(t *testing.T, app core.App, eventID string) int {
	t.Helper()
	record, err := app.FindRecordById("events", eventID)
	require.NoError(t, err)
	return record.GetInt("registrations_count")
}

// A free event finalizes straight from the form: approved, no payment
// method, counter bumped once.
func TestRegistrationService_CaptureDraftFreeEventFinalizes(t *testing.T) {
	app, service, _, formID, eventID := setupFinalizerApp(t, true)

	res, err := service.CaptureDraft(context.Background(), "", eventID, map[string]string{
		"Full Name":     "Ama Owusu",
		"Email Address": "ama@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmation", res.Next)
	assert.NotEmpty(t, res.SessionToken)
	require.NotNil(t, res.Finalized)
	assert.Equal(t, models.StatusApproved, res.Finalized.Status)
	assert.True(t, res.Finalized.CounterUpdated)

	submission, err := app.FindRecordById("form_submissions", res.Finalized.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, submission.GetString("status"))
	assert.Empty(t, submission.GetString("payment_method"))
	assert.Equal(t, eventID, submission.GetString("event"))
	assert.Equal(t, formID, submission.GetString("form"))

	assert.Equal(t, 1, eventCounter(t, app, eventID))
}

// Manual payment finalization: the stored draft becomes a pending
// submission carrying the payment details, and the draft is cleared.
func TestRegistrationService_FinalizeManualPendingWithDetails(t *testing.T) {
	app, service, mock, formID, eventID := setupFinalizerApp(t, false)
	defer mock.ClearExpect()

	sid := "sess_0123456789abcdef0123456789abcdef01234567"
	draft := models.Draft{
		EventID: eventID,
		FormID:  formID,
		Responses: map[string]string{
			"Full Name":     "Kofi Mensah",
			"Email Address": "kofi@example.com",
		},
	}
	payload, err := json.Marshal(draft)
	require.NoError(t, err)
	mock.ExpectHGet("registration_session:"+sid, "event_registration_"+eventID).SetVal(string(payload))
	mock.ExpectHDel("registration_session:"+sid, "event_registration_"+eventID).SetVal(1)

	res, err := service.FinalizeManual(context.Background(), sid, eventID, models.PaymentDetails{
		TransactionID: "12345678901",
		AccountName:   "Kofi Mensah",
		Amount:        decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.True(t, res.CounterUpdated)

	submission, err := app.FindRecordById("form_submissions", res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, submission.GetString("status"))
	assert.Equal(t, models.PaymentMethodManual, submission.GetString("payment_method"))
	assert.Contains(t, submission.GetString("payment_details"), "12345678901")

	assert.Equal(t, 1, eventCounter(t, app, eventID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The counter moves once per created submission, never more.
func TestRegistrationService_FinalizeCounterIncrementsPerSubmission(t *testing.T) {
	app, service, _, formID, eventID := setupFinalizerApp(t, false)

	ctx := context.Background()
	for _, who := range []string{"Ama Owusu", "Kofi Mensah"} {
		draft := models.Draft{
			EventID: eventID,
			FormID:  formID,
			Responses: map[string]string{
				"Full Name":     who,
				"Email Address": "attendee@example.com",
			},
		}
		_, err := service.Finalize(ctx, "sess_0123456789abcdef0123456789abcdef01234567", draft, models.StatusApproved, "", nil)
		require.NoError(t, err)
	}

	total, err := app.CountRecords("form_submissions", dbx.HashExp{"event": eventID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, 2, eventCounter(t, app, eventID))
}

// A failed counter update must never undo an accepted registration: the
// submission stands, the result carries a warning, and the counter is left
// for the reconciliation pass.
func TestRegistrationService_FinalizeCounterFailureKeepsSubmission(t *testing.T) {
	app, service, _, formID, eventID := setupFinalizerApp(t, false)

	_, err := app.DB().
		NewQuery("CREATE TRIGGER events_counter_frozen BEFORE UPDATE ON events BEGIN SELECT RAISE(ABORT, 'counter frozen'); END").
		Execute()
	require.NoError(t, err)

	draft := models.Draft{
		EventID: eventID,
		FormID:  formID,
		Responses: map[string]string{
			"Full Name":     "Ama Owusu",
			"Email Address": "ama@example.com",
		},
	}
	res, err := service.Finalize(context.Background(), "sess_0123456789abcdef0123456789abcdef01234567", draft, models.StatusPending, models.PaymentMethodManual, &models.PaymentDetails{
		TransactionID: "12345678901",
		AccountName:   "Ama Owusu",
		Amount:        decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.False(t, res.CounterUpdated)
	assert.NotEmpty(t, res.Warning)

	submission, err := app.FindRecordById("form_submissions", res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, submission.GetString("status"))

	assert.Equal(t, 0, eventCounter(t, app, eventID))
}

// The reconciliation pass recomputes the counter from the submission rows.
func TestRegistrationService_ReconcileCountersRepairsDrift(t *testing.T) {
	app, service, _, formID, eventID := setupFinalizerApp(t, false)

	ctx := context.Background()
	draft := models.Draft{
		EventID: eventID,
		FormID:  formID,
		Responses: map[string]string{
			"Full Name":     "Ama Owusu",
			"Email Address": "ama@example.com",
		},
	}
	_, err := service.Finalize(ctx, "sess_0123456789abcdef0123456789abcdef01234567", draft, models.StatusApproved, "", nil)
	require.NoError(t, err)

	_, err = app.DB().
		NewQuery("UPDATE events SET registrations_count = 5 WHERE id = {:id}").
		Bind(dbx.Params{"id": eventID}).
		Execute()
	require.NoError(t, err)
	require.Equal(t, 5, eventCounter(t, app, eventID))

	_, err = service.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, eventCounter(t, app, eventID))
}
