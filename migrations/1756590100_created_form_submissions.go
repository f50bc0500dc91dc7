package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		forms, err := app.FindCollectionByNameOrId("registration_forms")
		if err != nil {
			return err
		}

		submissions := core.NewBaseCollection("form_submissions")
		submissions.Fields.Add(
			&core.RelationField{Name: "event", Required: true, CollectionId: events.Id, MaxSelect: 1},
			&core.RelationField{Name: "form", CollectionId: forms.Id, MaxSelect: 1},
			&core.JSONField{Name: "responses", Required: true, MaxSize: 51200},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"pending", "approved", "rejected"}},
			&core.SelectField{Name: "payment_method", MaxSelect: 1, Values: []string{"manual", "online"}},
			&core.JSONField{Name: "payment_details", MaxSize: 10240},
			&core.TextField{Name: "reviewed_by", Max: 100},
			&core.DateField{Name: "reviewed_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		submissions.AddIndex("idx_form_submissions_event", false, "`event`, `status`", "")
		if err := app.Save(submissions); err != nil {
			return err
		}

		donations := core.NewBaseCollection("donations")
		donations.Fields.Add(
			&core.TextField{Name: "reference", Required: true, Max: 20},
			&core.TextField{Name: "donor_name", Required: true, Max: 200},
			&core.EmailField{Name: "donor_email", Required: true},
			&core.NumberField{Name: "amount", Required: true, Min: types.Pointer(0.0)},
			&core.TextField{Name: "currency", Required: true, Max: 3},
			&core.SelectField{Name: "frequency", Required: true, MaxSelect: 1, Values: []string{"once", "monthly"}},
			&core.SelectField{Name: "payment_method", MaxSelect: 1, Values: []string{"manual", "online"}},
			&core.JSONField{Name: "payment_details", MaxSize: 10240},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{"pending", "approved", "rejected"}},
			&core.TextField{Name: "reviewed_by", Max: 100},
			&core.DateField{Name: "reviewed_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		donations.AddIndex("idx_donations_reference", true, "`reference`", "")

		return app.Save(donations)
	}, func(app core.App) error {
		for _, name := range []string{"donations", "form_submissions"} {
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
