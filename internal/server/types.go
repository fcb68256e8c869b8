package server

import (
	"encoding/json"

	"github.com/rezonia/docintel/internal/model"
)

// TextResponse is the response of the text-only endpoint
type TextResponse struct {
	Filename  string  `json:"filename"`
	Text      string  `json:"text"`
	CleanText string  `json:"clean_text"`
	Fields    any     `json:"fields"`
	Summary   *string `json:"summary"`
	Error     *string `json:"error"`
}

// ExtractResponse is the response of the raw text extraction endpoint
type ExtractResponse struct {
	Fields   *model.ExtractionResult `json:"fields"`
	Summary  string                  `json:"summary,omitempty"`
	Warnings []string                `json:"warnings,omitempty"`
}

// CorrectionRequest carries user-corrected fields for a stored document
type CorrectionRequest struct {
	Filename string          `json:"filename"`
	Fields   json.RawMessage `json:"fields"`
}

// DocumentInfo is one entry of the document listing
type DocumentInfo struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	HasFields bool    `json:"has_fields"`
	Error     *string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
