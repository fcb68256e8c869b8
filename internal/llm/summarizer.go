package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxInputRunes bounds the document text sent for summarizing
const MaxInputRunes = 12000

// Summarizer produces abstractive summaries with a chat model
type Summarizer struct {
	client *Client
	model  string
}

// SummarizerOption configures the summarizer
type SummarizerOption func(*Summarizer)

// WithModel sets the model for summaries
func WithModel(model string) SummarizerOption {
	return func(s *Summarizer) {
		s.model = model
	}
}

// NewSummarizer creates an LLM-backed summarizer
func NewSummarizer(client *Client, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize asks the model for a summary of at most sentences sentences
func (s *Summarizer) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if sentences <= 0 {
		sentences = 3
	}
	if utf8.RuneCountInString(text) > MaxInputRunes {
		text = string([]rune(text)[:MaxInputRunes])
	}

	prompt := fmt.Sprintf(UserPromptSummary, sentences, text)
	out, err := s.client.ChatText(ctx, s.model, SystemPromptSummarizer, prompt)
	if err != nil {
		return "", fmt.Errorf("llm summary: %w", err)
	}
	return out, nil
}

// Transcriber reads text from document images with a vision model. It
// satisfies the text provider contract so it can close an extraction chain.
type Transcriber struct {
	client *Client
	model  string
}

// NewTranscriber creates a vision transcriber; an empty model uses the
// client default.
func NewTranscriber(client *Client, model string) *Transcriber {
	return &Transcriber{client: client, model: model}
}

// Name identifies the provider
func (*Transcriber) Name() string { return "llm-vision" }

// Supports reports whether mimeType is an image
func (*Transcriber) Supports(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// ExtractText transcribes the image
func (t *Transcriber) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	out, err := t.client.ChatWithImage(ctx, t.model, SystemPromptTranscriber, UserPromptTranscribe, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("llm transcription: %w", err)
	}
	return out, nil
}
