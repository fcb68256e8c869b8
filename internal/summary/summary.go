// Package summary condenses document text into a few sentences.
package summary

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// DefaultSentences is the summary length used when callers pass 0
const DefaultSentences = 3

// maxFallbackRunes bounds the summary of text without sentence boundaries
const maxFallbackRunes = 500

// Summarizer condenses text into at most sentences sentences
type Summarizer interface {
	Summarize(ctx context.Context, text string, sentences int) (string, error)
}

var sentenceBreak = regexp.MustCompile(`[.?!]\s+`)

// Extractive picks the longest sentences and joins them in document order
type Extractive struct{}

// Summarize implements Summarizer. It never fails.
func (Extractive) Summarize(_ context.Context, text string, sentences int) (string, error) {
	if sentences <= 0 {
		sentences = DefaultSentences
	}

	sents := SplitSentences(text)
	switch len(sents) {
	case 0:
		return "", nil
	case 1:
		return truncateRunes(sents[0], maxFallbackRunes), nil
	}

	ranked := make([]int, len(sents))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return utf8.RuneCountInString(sents[ranked[a]]) > utf8.RuneCountInString(sents[ranked[b]])
	})
	if len(ranked) > sentences {
		ranked = ranked[:sentences]
	}
	sort.Ints(ranked)

	chosen := make([]string, 0, len(ranked))
	for _, i := range ranked {
		chosen = append(chosen, sents[i])
	}
	return strings.Join(chosen, " "), nil
}

// SplitSentences splits text after '.', '?' or '!' followed by whitespace and
// drops blank pieces.
func SplitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceBreak.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Fallback tries Primary and falls back to Secondary when it fails or
// returns nothing.
type Fallback struct {
	Primary   Summarizer
	Secondary Summarizer
	Log       zerolog.Logger
}

// NewFallback returns a summarizer that uses primary and falls back to the
// extractive summarizer. A nil primary yields the extractive summarizer.
func NewFallback(primary Summarizer, log zerolog.Logger) Summarizer {
	if primary == nil {
		return Extractive{}
	}
	return &Fallback{Primary: primary, Secondary: Extractive{}, Log: log}
}

// Summarize implements Summarizer
func (f *Fallback) Summarize(ctx context.Context, text string, sentences int) (string, error) {
	out, err := f.Primary.Summarize(ctx, text, sentences)
	if err == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		f.Log.Warn().Err(err).Msg("primary summarizer failed, using fallback")
	}
	return f.Secondary.Summarize(ctx, text, sentences)
}
