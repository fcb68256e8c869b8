package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/rezonia/docintel/internal/model"
)

// DateParser parses one date span under a day/month ordering preference
type DateParser interface {
	Parse(raw string, dayFirst bool) (time.Time, bool)
}

// NaturalDateParser resolves spans with github.com/araddon/dateparse
type NaturalDateParser struct{}

var dmyDash = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{2,4}$`)

// Parse implements DateParser
func (NaturalDateParser) Parse(raw string, dayFirst bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if dmyDash.MatchString(raw) {
		raw = strings.ReplaceAll(raw, "-", "/")
	}
	t, err := dateparse.ParseAny(raw, dateparse.PreferMonthFirst(!dayFirst))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

var leadingNumber = regexp.MustCompile(`\d+`)

// resolveDate parses raw day-first and month-first and picks one
func (e *Engine) resolveDate(raw string) *time.Time {
	dayFirst, okDay := e.dates.Parse(raw, true)
	monthFirst, okMonth := e.dates.Parse(raw, false)

	switch {
	case okDay && !okMonth:
		return &dayFirst
	case okMonth && !okDay:
		return &monthFirst
	case !okDay && !okMonth:
		return nil
	case dayFirst.Equal(monthFirst):
		return &dayFirst
	}

	rule := "default"
	if e.rules.ISODate.MatchString(raw) {
		rule = "iso"
	} else if n, err := strconv.Atoi(leadingNumber.FindString(raw)); err == nil && n > 12 {
		rule = "first group above 12"
	}
	e.log.Debug().Str("raw", raw).Str("rule", rule).Msg("ambiguous date, taking day-first")
	return &dayFirst
}

// DateCandidates returns every date-like span in text with its resolved
// value and label.
func (e *Engine) DateCandidates(text string) []model.DateCandidate {
	var out []model.DateCandidate
	for _, loc := range e.rules.Date.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		out = append(out, model.DateCandidate{
			Raw:      raw,
			Resolved: e.resolveDate(raw),
			Label:    e.labelDate(text, loc[0], loc[1]),
		})
	}
	return out
}

// ResolveDates assigns date candidates to the issue, due and delivery slots.
// The first candidate for a slot wins; unlabelled candidates go to Other.
func (e *Engine) ResolveDates(text string) model.Dates {
	dates := model.Dates{Other: []*time.Time{}}
	seenOther := make(map[string]bool)

	for _, c := range e.DateCandidates(text) {
		var slot **time.Time
		switch c.Label {
		case model.DateIssue:
			slot = &dates.Issue
		case model.DateDue:
			slot = &dates.Due
		case model.DateDelivery:
			slot = &dates.Delivery
		}

		if slot != nil {
			if c.Resolved != nil && *slot == nil {
				*slot = c.Resolved
			}
			continue
		}

		key := ""
		if c.Resolved != nil {
			key = c.Resolved.Format(model.DateLayout)
		}
		if seenOther[key] {
			continue
		}
		seenOther[key] = true
		dates.Other = append(dates.Other, c.Resolved)
	}

	e.log.Debug().
		Bool("issue", dates.Issue != nil).
		Bool("due", dates.Due != nil).
		Bool("delivery", dates.Delivery != nil).
		Int("other", len(dates.Other)).
		Msg("resolved dates")
	return dates
}

// labelDate labels the span [start,end) of text from the DateWindow around
// it. With LineFirstDates the span's own line is checked first.
func (e *Engine) labelDate(text string, start, end int) model.DateLabel {
	lo := windowStart(text, start, e.rules.DateWindow)
	hi := windowEnd(text, end, e.rules.DateWindow)

	if e.rules.LineFirstDates {
		lineLo, lineHi := lo, hi
		if i := strings.LastIndexByte(text[lo:start], '\n'); i >= 0 {
			lineLo = lo + i + 1
		}
		if i := strings.IndexByte(text[end:hi], '\n'); i >= 0 {
			lineHi = end + i
		}
		if label := e.rules.LabelDate(text[lineLo:lineHi]); label != model.DateOther {
			return label
		}
	}
	return e.rules.LabelDate(text[lo:hi])
}

// windowStart steps back n runes from i
func windowStart(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// windowEnd steps forward n runes from i
func windowEnd(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
