package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire
const DateLayout = "2006-01-02"

// Wire form of ExtractionResult. Amounts are JSON numbers.
type resultJSON struct {
	Vendor        *string    `json:"vendor"`
	InvoiceNumber *string    `json:"invoiceNumber"`
	Dates         datesJSON  `json:"dates"`
	Amounts       []itemJSON `json:"amounts"`
	Totals        totalsJSON `json:"totals"`
}

type datesJSON struct {
	Issue    *string   `json:"issue"`
	Due      *string   `json:"due"`
	Delivery *string   `json:"delivery"`
	Other    []*string `json:"other"`
}

type itemJSON struct {
	Amount      json.Number `json:"amount"`
	Currency    *string     `json:"currency"`
	Description *string     `json:"description"`
	Quantity    *string     `json:"quantity"`
	Label       *string     `json:"label"`
}

type totalsJSON struct {
	Subtotal *json.Number `json:"subtotal"`
	Tax      *json.Number `json:"tax"`
	TotalDue *json.Number `json:"totalDue"`
}

// MarshalJSON writes the self-describing key/value form of the result
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Vendor:        r.Vendor,
		InvoiceNumber: r.InvoiceNumber,
		Dates: datesJSON{
			Issue:    formatDate(r.Dates.Issue),
			Due:      formatDate(r.Dates.Due),
			Delivery: formatDate(r.Dates.Delivery),
			Other:    make([]*string, 0, len(r.Dates.Other)),
		},
		Amounts: make([]itemJSON, 0, len(r.Amounts)),
		Totals: totalsJSON{
			Subtotal: formatNumber(r.Totals.Subtotal),
			Tax:      formatNumber(r.Totals.Tax),
			TotalDue: formatNumber(r.Totals.TotalDue),
		},
	}
	for _, d := range r.Dates.Other {
		out.Dates.Other = append(out.Dates.Other, formatDate(d))
	}
	for _, it := range r.Amounts {
		out.Amounts = append(out.Amounts, itemJSON{
			Amount:      json.Number(it.Amount.String()),
			Currency:    it.Currency,
			Description: it.Description,
			Quantity:    it.Quantity,
			Label:       it.Label,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	res := NewExtractionResult()
	res.Vendor = in.Vendor
	res.InvoiceNumber = in.InvoiceNumber

	var err error
	if res.Dates.Issue, err = parseDate(in.Dates.Issue); err != nil {
		return err
	}
	if res.Dates.Due, err = parseDate(in.Dates.Due); err != nil {
		return err
	}
	if res.Dates.Delivery, err = parseDate(in.Dates.Delivery); err != nil {
		return err
	}
	for _, s := range in.Dates.Other {
		d, err := parseDate(s)
		if err != nil {
			return err
		}
		res.Dates.Other = append(res.Dates.Other, d)
	}

	for _, it := range in.Amounts {
		amt, err := decimal.NewFromString(it.Amount.String())
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", it.Amount, err)
		}
		res.Amounts = append(res.Amounts, LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Amount:      amt,
			Currency:    it.Currency,
			Label:       it.Label,
		})
	}

	if res.Totals.Subtotal, err = parseNumber(in.Totals.Subtotal); err != nil {
		return err
	}
	if res.Totals.Tax, err = parseNumber(in.Totals.Tax); err != nil {
		return err
	}
	if res.Totals.TotalDue, err = parseNumber(in.Totals.TotalDue); err != nil {
		return err
	}

	*r = *res
	return nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *s, err)
	}
	return &t, nil
}

func formatNumber(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.String())
	return &n
}

func parseNumber(n *json.Number) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", *n, err)
	}
	return &d, nil
}
