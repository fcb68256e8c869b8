package model

import "time"

// Record is the persisted outcome of processing one uploaded document
type Record struct {
	ID        string            `json:"id"`
	Filename  string            `json:"filename"`
	Text      string            `json:"text"`
	CleanText string            `json:"clean_text"`
	Fields    *ExtractionResult `json:"fields"`
	Summary   *string           `json:"summary"`
	Warnings  []string          `json:"warnings,omitempty"`
	Error     *string           `json:"error"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// HasFields reports whether the record carries extracted fields
func (r *Record) HasFields() bool {
	return r != nil && r.Fields != nil
}
