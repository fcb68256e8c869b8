package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rezonia/docintel/internal/model"
)

var (
	descriptionRun = regexp.MustCompile(`[A-Za-z].{0,59}`)
	quantityBefore = regexp.MustCompile(`(?:^|\s)(\d{1,4})\s*$`)
)

// LinkItems turns amount candidates into line items, attaching the nearest
// descriptive text. Items with the same amount and description keep the first.
func LinkItems(candidates []model.AmountCandidate) []model.LineItem {
	items := make([]model.LineItem, 0, len(candidates))
	seen := make(map[string]bool)

	for _, c := range candidates {
		item := model.LineItem{
			Description: describe(c),
			Quantity:    quantity(c),
			Amount:      c.Value,
			Currency:    c.Currency,
		}
		if c.Label != model.LabelNone {
			item.Label = model.StringPtr(string(c.Label))
		}

		key := item.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	return items
}

func describe(c model.AmountCandidate) *string {
	rest := strings.TrimSpace(strings.ReplaceAll(c.Line, c.Raw, ""))
	if hasLetter(rest) {
		return &rest
	}

	if strings.Contains(c.Context, "|") {
		for _, part := range strings.Split(c.Context, "|") {
			part = strings.TrimSpace(part)
			if hasLetter(part) {
				return &part
			}
		}
	}

	if run := strings.TrimSpace(descriptionRun.FindString(c.Context)); run != "" {
		return &run
	}
	return nil
}

// quantity returns the bare integer written just before the amount
func quantity(c model.AmountCandidate) *string {
	if c.Start <= 0 || c.Start > len(c.Line) {
		return nil
	}
	m := quantityBefore.FindStringSubmatch(c.Line[:c.Start])
	if m == nil {
		return nil
	}
	return &m[1]
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
