package service

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/atinyakov/venditori/internal/cvstore"
	"github.com/atinyakov/venditori/internal/models"
)

// MinBirthYear is the earliest accepted birth year.
const MinBirthYear = 1900

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Add records a failed check on field.
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match models.ErrInvalid.
func (ve *ValidationErrors) Unwrap() error {
	return models.ErrInvalid
}

func requireField(ve *ValidationErrors, field, value string) {
	if value == "" {
		ve.Add(field, "is required")
	}
}

func validateEmail(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		ve.Add(field, "must be a valid email address")
	}
}

// normalizeFlag maps the accepted spellings of a yes/no flag to models.Yes or
// models.No. It returns "" for anything else.
func normalizeFlag(value string) string {
	switch strings.ToLower(value) {
	case "sì", "si", "sí", "yes", "true":
		return models.Yes
	case "no", "false":
		return models.No
	}
	return ""
}

func validateFlag(ve *ValidationErrors, field string, value *string) {
	if *value == "" {
		ve.Add(field, "is required")
		return
	}
	norm := normalizeFlag(*value)
	if norm == "" {
		ve.Add(field, fmt.Sprintf("must be one of: %s, %s", models.Yes, models.No))
		return
	}
	*value = norm
}

// ValidateVendor trims every string field of v, clears a CV that is not an
// http(s) URL, normalizes its flags and checks required fields, email syntax
// and numeric ranges. It returns a *ValidationErrors listing every failed
// check.
func ValidateVendor(v *models.Vendor, now time.Time) error {
	for _, s := range []*string{
		&v.FullName, &v.Email, &v.Phone, &v.City, &v.Sector,
		&v.VATRegistered, &v.Enasarco, &v.CV, &v.Notes,
	} {
		*s = strings.TrimSpace(*s)
	}
	// Stored files are attached by upload only; a client-supplied path is dropped.
	if v.CV != "" && !cvstore.IsURL(v.CV) {
		v.CV = ""
	}

	ve := &ValidationErrors{}
	requireField(ve, "nome_cognome", v.FullName)
	requireField(ve, "email", v.Email)
	validateEmail(ve, "email", v.Email)
	requireField(ve, "citta", v.City)
	requireField(ve, "settore_esperienza", v.Sector)
	validateFlag(ve, "partita_iva", &v.VATRegistered)
	validateFlag(ve, "agente_isenarco", &v.Enasarco)

	if v.SalesExperience < 0 {
		ve.Add("esperienza_vendita", "must be non-negative")
	}
	if v.BirthYear != 0 && (v.BirthYear < MinBirthYear || v.BirthYear > now.Year()) {
		ve.Add("anno_nascita", fmt.Sprintf("must be between %d and %d", MinBirthYear, now.Year()))
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}
