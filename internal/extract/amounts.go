package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	moneyutil "github.com/rezonia/docintel/internal/decimal"
	"github.com/rezonia/docintel/internal/model"
)

// token is one parsed money literal on a line, before filtering
type token struct {
	start    int
	raw      string
	amt      string
	value    decimal.Decimal
	currency *string
}

// ScanAmounts finds amount candidates in lines, filters noise, labels them
// and returns them deduplicated in output order.
func (e *Engine) ScanAmounts(lines []model.Line) []model.AmountCandidate {
	tokens := make([][]token, len(lines))
	for i, ln := range lines {
		tokens[i] = e.lineTokens(ln.Text)
	}

	var candidates []model.AmountCandidate
	seen := make(map[string]bool)
	for i, ln := range lines {
		label := e.rules.LabelAmount(ln.Text)

		context := ln.Text
		if i > 0 && len(tokens[i-1]) == 0 {
			context = lines[i-1].Text + " | " + ln.Text
		}

		priced := e.priced(tokens[i])
		for _, tok := range tokens[i] {
			c := model.AmountCandidate{
				Value:     tok.value,
				Currency:  tok.currency,
				Raw:       tok.raw,
				Context:   context,
				Line:      ln.Text,
				LineIndex: ln.Index,
				Start:     tok.start,
				Label:     label,
			}
			if !e.keep(c, tok.amt, priced) {
				continue
			}
			key := c.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return labelRank(candidates[a].Label) < labelRank(candidates[b].Label)
	})

	e.log.Debug().Int("lines", len(lines)).Int("amounts", len(candidates)).Msg("scanned amounts")
	return candidates
}

func labelRank(l model.AmountLabel) int {
	switch l {
	case model.LabelTotalDue:
		return 0
	case model.LabelTax:
		return 1
	case model.LabelSubtotal:
		return 2
	default:
		return 3
	}
}

// lineTokens parses every money literal on line. With Guards, masked spans
// and numbers glued to letters are skipped.
func (e *Engine) lineTokens(line string) []token {
	scan := line
	if e.rules.Guards {
		scan = e.maskLine(line)
	}
	re := e.rules.Amount

	var out []token
	for _, m := range re.FindAllStringSubmatchIndex(scan, -1) {
		group := func(name string) string {
			i := re.SubexpIndex(name)
			if i < 0 || m[2*i] < 0 {
				return ""
			}
			return scan[m[2*i]:m[2*i+1]]
		}

		sign, lcode, sym, amt, code := group("sign"), group("lcode"), group("sym"), group("amt"), group("code")

		var currency *string
		switch {
		case code != "":
			currency = model.StringPtr(strings.ToUpper(code))
		case sym != "":
			if c, ok := e.rules.CurrencySymbols[sym]; ok {
				currency = model.StringPtr(c)
			}
		case lcode != "":
			currency = model.StringPtr(strings.ToUpper(lcode))
		}

		if e.rules.Guards && currency == nil && (letterBefore(scan, m[0]) || letterAfter(scan, m[1])) {
			continue
		}

		value, ok := moneyutil.ParseAmount(sign + amt)
		if !ok {
			continue
		}

		out = append(out, token{
			start:    m[0],
			raw:      line[m[0]:m[1]],
			amt:      amt,
			value:    value,
			currency: currency,
		})
	}
	return out
}

// keep applies the noise passes and the magnitude threshold to one
// candidate. priced reports whether its line holds a currency or
// two-decimal amount.
func (e *Engine) keep(c model.AmountCandidate, amt string, priced bool) bool {
	if c.HasCurrency() {
		return true
	}

	digits := countDigits(c.Raw)
	if digits > e.rules.MaxBareDigits && !e.rules.TwoDecimal.MatchString(c.Raw) {
		return false
	}
	if e.rules.Phone.MatchString(c.Raw) {
		return false
	}
	if digits > e.rules.MaxDigits {
		return false
	}
	// bare integers beside a real price are quantities
	if e.rules.Guards && priced && isBareInteger(amt) {
		return false
	}
	if c.Label == model.LabelNone && moneyutil.AbsBelow(c.Value, e.rules.MinMagnitude) {
		return false
	}
	return true
}

func (e *Engine) priced(tokens []token) bool {
	for _, tok := range tokens {
		if tok.currency != nil || e.rules.TwoDecimal.MatchString(tok.amt) {
			return true
		}
	}
	return false
}

// maskLine blanks masked spans with spaces, keeping byte offsets intact
func (e *Engine) maskLine(line string) string {
	var b []byte
	for _, re := range e.rules.Masks {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if b == nil {
				b = []byte(line)
			}
			for i := loc[0]; i < loc[1]; i++ {
				b[i] = ' '
			}
		}
	}
	if b == nil {
		return line
	}
	return string(b)
}

func letterBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r)
}

func letterAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func isBareInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
