// Package errreport forwards workflow errors to the operator review
// channel: an error_reports collection record plus a PubNub publish. Both
// are best-effort and never block or fail the user-facing flow.
package errreport

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
)

type Report struct {
	Component string `json:"component"`
	EventID   string `json:"event_id,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Message   string `json:"message"`
	Draft     any    `json:"draft,omitempty"`
}

type Recorder struct {
	app     core.App
	pn      *pubnub.PubNub
	channel string
}

// New builds a recorder. pn may be nil when PubNub is not configured.
func New(app core.App, pn *pubnub.PubNub, channel string) *Recorder {
	return &Recorder{app: app, pn: pn, channel: channel}
}

// Record persists the report and publishes it for operators. Failures are
// logged and swallowed.
func (r *Recorder) Record(ctx context.Context, report Report, err error) {
	if err != nil {
		report.Message = err.Error()
	}

	if r == nil || r.app == nil {
		return
	}

	collection, cerr := r.app.FindCollectionByNameOrId("error_reports")
	if cerr != nil {
		slog.Warn("errreport: error_reports collection unavailable", "error", cerr)
	} else {
		record := core.NewRecord(collection)
		record.Set("component", report.Component)
		record.Set("event", report.EventID)
		record.Set("event_name", report.EventName)
		record.Set("message", report.Message)
		if report.Draft != nil {
			if snapshot, jerr := json.Marshal(report.Draft); jerr == nil {
				record.Set("draft_snapshot", string(snapshot))
			}
		}
		if serr := r.app.SaveWithContext(ctx, record); serr != nil {
			slog.Warn("errreport: save report failed", "component", report.Component, "error", serr)
		}
	}

	if r.pn != nil && r.channel != "" {
		go func() {
			r.pn.Publish().
				Channel(r.channel).
				Message(map[string]any{
					"component":  report.Component,
					"event_id":   report.EventID,
					"event_name": report.EventName,
					"message":    report.Message,
				}).
				Execute()
		}()
	}
}
