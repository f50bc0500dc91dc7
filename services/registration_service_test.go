package services

import (
	"testing"

	"craft-platform/internal/status"
	"craft-platform/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateResponses(t *testing.T) {
	form := &models.RegistrationForm{
		ID:    "form1",
		Title: "Workshop registration",
		Fields: []models.FormField{
			{Label: "Full Name", Type: "text", Required: true},
			{Label: "Email", Type: "email", Required: true},
			{Label: "Organization", Type: "text"},
			{Label: "Track", Type: "select", Required: true, Options: []string{"Research", "Policy"}},
		},
	}

	tests := []struct {
		name      string
		responses map[string]string
		wantErr   bool
	}{
		{
			name: "complete",
			responses: map[string]string{
				"Full Name": "Ama Owusu",
				"Email":     "ama@example.com",
				"Track":     "Research",
			},
		},
		{
			name: "optional field may be empty",
			responses: map[string]string{
				"Full Name":    "Ama Owusu",
				"Email":        "ama@example.com",
				"Organization": "",
				"Track":        "Policy",
			},
		},
		{
			name: "required field missing",
			responses: map[string]string{
				"Full Name": "Ama Owusu",
				"Track":     "Research",
			},
			wantErr: true,
		},
		{
			name: "required field whitespace only",
			responses: map[string]string{
				"Full Name": "   ",
				"Email":     "ama@example.com",
				"Track":     "Research",
			},
			wantErr: true,
		},
		{
			name: "select value outside options",
			responses: map[string]string{
				"Full Name": "Ama Owusu",
				"Email":     "ama@example.com",
				"Track":     "Finance",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponses(form, tt.responses)
			if tt.wantErr {
				assert.ErrorIs(t, err, status.ErrMissingAnswer)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRespondentIdentity(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]string
		wantName  string
		wantEmail string
	}{
		{
			name: "exact labels",
			responses: map[string]string{
				"Full Name": "Ama Owusu",
				"Email":     "ama@example.com",
			},
			wantName:  "Ama Owusu",
			wantEmail: "ama@example.com",
		},
		{
			name: "long form labels",
			responses: map[string]string{
				"Name":          "Kofi Asante",
				"Email Address": "kofi@example.com",
			},
			wantName:  "Kofi Asante",
			wantEmail: "kofi@example.com",
		},
		{
			name: "fuzzy labels",
			responses: map[string]string{
				"Your name (as it should appear on the certificate)": "Efua Mensah",
				"Work email": "efua@example.org",
			},
			wantName:  "Efua Mensah",
			wantEmail: "efua@example.org",
		},
		{
			name: "account name label is not the respondent name",
			responses: map[string]string{
				"Account Name": "Someone Else",
				"Full Name":    "Ama Owusu",
				"Email":        "ama@example.com",
			},
			wantName:  "Ama Owusu",
			wantEmail: "ama@example.com",
		},
		{
			name:      "nothing usable",
			responses: map[string]string{"Phone": "0241234567"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email := RespondentIdentity(tt.responses)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}
