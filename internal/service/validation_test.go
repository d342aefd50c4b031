package service

import (
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateVendor(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	base := models.Vendor{
		FullName:      "Anna Bianchi",
		Email:         "anna@example.com",
		City:          "Roma",
		Sector:        "Food",
		VATRegistered: "Sì",
		Enasarco:      "No",
	}

	tests := []struct {
		name   string
		mutate func(v *models.Vendor)
		fields []string
	}{
		{name: "valid", mutate: func(*models.Vendor) {}},
		{name: "birth year unset", mutate: func(v *models.Vendor) { v.BirthYear = 0 }},
		{name: "birth year current", mutate: func(v *models.Vendor) { v.BirthYear = 2024 }},
		{name: "birth year future", mutate: func(v *models.Vendor) { v.BirthYear = 2025 }, fields: []string{"anno_nascita"}},
		{name: "birth year too old", mutate: func(v *models.Vendor) { v.BirthYear = 1899 }, fields: []string{"anno_nascita"}},
		{name: "display name email", mutate: func(v *models.Vendor) { v.Email = "Anna <anna@example.com>" }, fields: []string{"email"}},
		{name: "missing name", mutate: func(v *models.Vendor) { v.FullName = "\t" }, fields: []string{"nome_cognome"}},
		{name: "bad flag", mutate: func(v *models.Vendor) { v.Enasarco = "forse" }, fields: []string{"agente_isenarco"}},
		{name: "missing flag", mutate: func(v *models.Vendor) { v.VATRegistered = "" }, fields: []string{"partita_iva"}},
		{
			name:   "everything missing",
			mutate: func(v *models.Vendor) { *v = models.Vendor{} },
			fields: []string{"nome_cognome", "email", "citta", "settore_esperienza", "partita_iva", "agente_isenarco"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base
			tt.mutate(&v)
			err := ValidateVendor(&v, now)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationErrors
			if assert.True(t, errors.As(err, &ve)) {
				var got []string
				for _, e := range ve.Errors {
					got = append(got, e.Field)
				}
				assert.Equal(t, tt.fields, got)
			}
			assert.ErrorIs(t, err, models.ErrInvalid)
		})
	}
}

func TestNormalizeFlag(t *testing.T) {
	for in, want := range map[string]string{
		"Sì": models.Yes, "SI": models.Yes, "sí": models.Yes, "yes": models.Yes,
		"No": models.No, "false": models.No, "maybe": "", "": "",
	} {
		assert.Equal(t, want, normalizeFlag(in), in)
	}
}

func TestValidateVendor_CVReference(t *testing.T) {
	tests := []struct {
		name string
		cv   string
		want string
	}{
		{name: "url kept", cv: " https://example.com/cv.pdf ", want: "https://example.com/cv.pdf"},
		{name: "stored file path dropped", cv: "cv_files/7_0b6f.pdf", want: ""},
		{name: "absolute path dropped", cv: "/etc/passwd", want: ""},
		{name: "file scheme dropped", cv: "file:///tmp/cv.pdf", want: ""},
		{name: "blank", cv: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := models.Vendor{
				FullName: "Anna Bianchi", Email: "anna@example.com", City: "Roma", Sector: "Food",
				VATRegistered: "Sì", Enasarco: "No", CV: tt.cv,
			}
			assert.NoError(t, ValidateVendor(&v, time.Now()))
			assert.Equal(t, tt.want, v.CV)
		})
	}
}
