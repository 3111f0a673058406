package session

import "github.com/xelth-com/eckreport/internal/models"

// History is the ordered, append-only list of visits of one session
type History struct {
	records []models.VisitRecord
}

// Append adds rec after every existing row and returns the new length
func (h *History) Append(rec models.VisitRecord) int {
	h.records = append(h.records, rec)
	return len(h.records)
}

// Len returns the number of rows
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of the rows in insertion order
func (h *History) Records() []models.VisitRecord {
	return append([]models.VisitRecord(nil), h.records...)
}

// ToTable exports the rows with the fixed history header
func (h *History) ToTable() models.Table {
	return models.NewTable(h.records)
}
