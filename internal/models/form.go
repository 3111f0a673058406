package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidField is wrapped by every FieldError
var ErrInvalidField = errors.New("invalid form field")

// FieldError reports which submitted field was rejected
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidField)
func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

// Form field names posted by the visit form
const (
	FieldName        = "name"
	FieldCompany     = "company"
	FieldDate        = "date"
	FieldPurpose     = "purpose"
	FieldTimeIn      = "time_in"
	FieldTimeOut     = "time_out"
	FieldDescription = "description"
)

// ParseVisitForm maps submitted key/value pairs onto a VisitRecord.
// Unknown keys are ignored; text fields are taken verbatim apart from
// surrounding whitespace on single-line inputs.
func ParseVisitForm(values url.Values) (VisitRecord, error) {
	var rec VisitRecord

	rec.Name = strings.TrimSpace(values.Get(FieldName))
	if rec.Name == "" {
		return rec, &FieldError{Field: FieldName, Reason: "required"}
	}

	rec.Company = strings.TrimSpace(values.Get(FieldCompany))
	if rec.Company == "" {
		return rec, &FieldError{Field: FieldCompany, Reason: "required"}
	}

	purpose, err := ParsePurpose(values.Get(FieldPurpose))
	if err != nil {
		return rec, &FieldError{Field: FieldPurpose, Reason: err.Error()}
	}
	rec.Purpose = purpose

	date, err := time.Parse(DateLayout, strings.TrimSpace(values.Get(FieldDate)))
	if err != nil {
		return rec, &FieldError{Field: FieldDate, Reason: "expected YYYY-MM-DD"}
	}
	rec.Date = date

	if rec.TimeIn, err = ParseClock(values.Get(FieldTimeIn)); err != nil {
		return rec, &FieldError{Field: FieldTimeIn, Reason: "expected HH:MM"}
	}
	if rec.TimeOut, err = ParseClock(values.Get(FieldTimeOut)); err != nil {
		return rec, &FieldError{Field: FieldTimeOut, Reason: "expected HH:MM"}
	}

	rec.Description = strings.ReplaceAll(values.Get(FieldDescription), "\r\n", "\n")

	return rec, nil
}

// FormDefaults are the prefilled values of a fresh form
type FormDefaults struct {
	Name        string
	Company     string
	Date        string
	TimeIn      string
	TimeOut     string
	Description string
	Purposes    []Purpose
}

// DefaultForm returns the initial form values for the given moment
func DefaultForm(now time.Time) FormDefaults {
	return FormDefaults{
		Name:        "Tu Nombre",
		Company:     "Empresa XYZ",
		Date:        now.Format(DateLayout),
		TimeIn:      now.Format(ClockLayout),
		TimeOut:     now.Format(ClockLayout),
		Description: "Detalles del trabajo realizado...",
		Purposes:    Purposes,
	}
}
