package errreport

import (
	"context"
	"errors"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRecorderApp(t *testing.T) *tests.TestApp {
	t.Helper()

	app, err := tests.NewTestApp()
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	reports := core.NewBaseCollection("error_reports")
	reports.Fields.Add(
		&core.TextField{Name: "component", Required: true, Max: 100},
		&core.TextField{Name: "event", Max: 100},
		&core.TextField{Name: "event_name", Max: 200},
		&core.TextField{Name: "message", Required: true, Max: 2000},
		&core.JSONField{Name: "draft_snapshot", MaxSize: 51200},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	require.NoError(t, app.Save(reports))

	return app
}

// Reports are also raised for event ids that never existed, e.g. a
// registration request against an unknown event. Those must still persist.
func TestRecorder_RecordWithUnknownEventID(t *testing.T) {
	app := setupTestRecorderApp(t)
	recorder := New(app, nil, "")

	recorder.Record(context.Background(), Report{
		Component: "registration-form",
		EventID:   "nope123456789ab",
		Message:   "ignored when err is set",
	}, errors.New("event not found"))

	saved, err := app.FindFirstRecordByData("error_reports", "component", "registration-form")
	require.NoError(t, err)
	assert.Equal(t, "nope123456789ab", saved.GetString("event"))
	assert.Equal(t, "event not found", saved.GetString("message"))
}

func TestRecorder_RecordIncludesDraftSnapshot(t *testing.T) {
	app := setupTestRecorderApp(t)
	recorder := New(app, nil, "")

	recorder.Record(context.Background(), Report{
		Component: "submission-finalizer",
		EventID:   "evt1",
		EventName: "Research Methods Workshop",
		Message:   "counter update failed",
		Draft:     map[string]string{"Full Name": "Ama Owusu"},
	}, nil)

	saved, err := app.FindFirstRecordByData("error_reports", "component", "submission-finalizer")
	require.NoError(t, err)
	assert.Equal(t, "evt1", saved.GetString("event"))
	assert.Contains(t, saved.GetString("draft_snapshot"), "Ama Owusu")
}

// A nil recorder or an app-less recorder is a no-op, not a panic.
func TestRecorder_NilSafe(t *testing.T) {
	var recorder *Recorder
	recorder.Record(context.Background(), Report{Component: "x", Message: "y"}, nil)

	New(nil, nil, "").Record(context.Background(), Report{Component: "x", Message: "y"}, nil)
}
