package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		reports := core.NewBaseCollection("error_reports")
		// The event id is stored as plain text rather than a relation: reports
		// also cover requests for event ids that do not exist, and those must
		// still be recordable.
		reports.Fields.Add(
			&core.TextField{Name: "component", Required: true, Max: 100},
			&core.TextField{Name: "event", Max: 100},
			&core.TextField{Name: "event_name", Max: 200},
			&core.TextField{Name: "message", Required: true, Max: 2000},
			&core.JSONField{Name: "draft_snapshot", MaxSize: 51200},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		reports.AddIndex("idx_error_reports_component", false, "`component`, `created`", "")
		if err := app.Save(reports); err != nil {
			return err
		}

		admins := core.NewAuthCollection("admins")
		admins.Fields.Add(
			&core.TextField{Name: "name", Max: 200},
		)
		return app.Save(admins)
	}, func(app core.App) error {
		for _, name := range []string{"admins", "error_reports"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
