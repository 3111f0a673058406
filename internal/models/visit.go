package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the text form of a visit date everywhere it is rendered
	DateLayout = "2006-01-02"
	// ClockLayout is the text form of TimeIn / TimeOut
	ClockLayout = "15:04"
	// FileDateLayout is used in generated filenames
	FileDateLayout = "20060102"

	// SignatureMarker is what the history table stores instead of image bytes
	SignatureMarker = "Firma Cargada"
)

// Purpose of a technician visit
type Purpose string

const (
	PurposeMaintenance  Purpose = "Mantenimiento"
	PurposeInstallation Purpose = "Instalación"
	PurposeRepair       Purpose = "Reparación"
	PurposeAudit        Purpose = "Auditoría"
)

// Purposes lists the selectable values in form order
var Purposes = []Purpose{PurposeMaintenance, PurposeInstallation, PurposeRepair, PurposeAudit}

// purposeAliases maps accepted spellings (lowercased) to the canonical label
var purposeAliases = map[string]Purpose{
	"mantenimiento": PurposeMaintenance,
	"maintenance":   PurposeMaintenance,
	"instalación":   PurposeInstallation,
	"instalacion":   PurposeInstallation,
	"installation":  PurposeInstallation,
	"reparación":    PurposeRepair,
	"reparacion":    PurposeRepair,
	"repair":        PurposeRepair,
	"auditoría":     PurposeAudit,
	"auditoria":     PurposeAudit,
	"audit":         PurposeAudit,
}

// ParsePurpose normalises a submitted purpose to its canonical label
func ParsePurpose(s string) (Purpose, error) {
	if p, ok := purposeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown purpose %q", s)
}

// Clock is a time of day with minute precision
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "15:04" and "15:04:05" (seconds are dropped)
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ClockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, fmt.Errorf("invalid time of day %q", s)
}

// ClockOf extracts the time of day from t
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText implements encoding.TextMarshaler
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// VisitRecord is one technician-submitted report entry
type VisitRecord struct {
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Purpose     Purpose   `json:"purpose"`
	TimeIn      Clock     `json:"timeIn"`
	TimeOut     Clock     `json:"timeOut"`
	Date        time.Time `json:"-"`
	Description string    `json:"description"`
}

// MarshalJSON renders Date with DateLayout instead of RFC3339
func (v VisitRecord) MarshalJSON() ([]byte, error) {
	type plain VisitRecord
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain: plain(v), Date: v.DateText()})
}

// DateText renders the visit date
func (v VisitRecord) DateText() string {
	return v.Date.Format(DateLayout)
}

// DescriptionLines splits the description on newlines; CRLF from browsers is normalised
func (v VisitRecord) DescriptionLines() []string {
	text := strings.ReplaceAll(v.Description, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// Row renders the record in history column order
func (v VisitRecord) Row() []string {
	return []string{
		v.Name,
		v.Company,
		string(v.Purpose),
		v.TimeIn.String(),
		v.TimeOut.String(),
		v.DateText(),
		SignatureMarker,
	}
}

// HistoryColumns is the fixed column order of the history table
var HistoryColumns = []string{"Name", "Company", "Purpose", "Time In", "Time Out", "Date", "Firma"}

// Table is the tabular export of a session history
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// NewTable builds a table with the history header and one row per record
func NewTable(records []VisitRecord) Table {
	t := Table{
		Header: append([]string(nil), HistoryColumns...),
		Rows:   make([][]string, 0, len(records)),
	}
	for _, r := range records {
		t.Rows = append(t.Rows, r.Row())
	}
	return t
}
