package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		forms := core.NewBaseCollection("registration_forms")
		forms.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.JSONField{Name: "fields", Required: true, MaxSize: 51200},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		if err := app.Save(forms); err != nil {
			return err
		}

		events := core.NewBaseCollection("events")
		events.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "theme", Max: 200},
			&core.EditorField{Name: "description"},
			&core.DateField{Name: "start_at", Required: true},
			&core.DateField{Name: "end_at"},
			&core.DateField{Name: "registration_deadline"},
			&core.DateField{Name: "early_bird_deadline"},
			&core.NumberField{Name: "capacity", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.NumberField{Name: "price", Min: types.Pointer(0.0)},
			&core.NumberField{Name: "early_bird_price", Min: types.Pointer(0.0)},
			&core.BoolField{Name: "is_free"},
			&core.BoolField{Name: "has_early_bird"},
			&core.BoolField{Name: "require_approval"},
			&core.URLField{Name: "community_channel_url"},
			&core.RelationField{Name: "registration_form", CollectionId: forms.Id, MaxSelect: 1},
			&core.NumberField{Name: "registrations_count", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"draft", "published", "archived"}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		events.ListRule = types.Pointer("status = 'published'")
		events.ViewRule = types.Pointer("status = 'published'")
		events.AddIndex("idx_events_status_start", false, "`status`, `start_at`", "")

		return app.Save(events)
	}, func(app core.App) error {
		for _, name := range []string{"events", "registration_forms"} {
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
