package extract

import (
	"github.com/shopspring/decimal"

	moneyutil "github.com/rezonia/docintel/internal/decimal"
	"github.com/rezonia/docintel/internal/model"
)

// ReconcileTotals fills the totals from labelled candidates; the last one
// per label wins. Without a labelled total due, the candidate with the
// largest magnitude is used.
func ReconcileTotals(candidates []model.AmountCandidate) model.Totals {
	var totals model.Totals
	for _, c := range candidates {
		v := c.Value
		switch c.Label {
		case model.LabelSubtotal:
			totals.Subtotal = &v
		case model.LabelTax:
			totals.Tax = &v
		case model.LabelTotalDue:
			totals.TotalDue = &v
		}
	}

	if totals.TotalDue == nil && len(candidates) > 0 {
		values := make([]decimal.Decimal, len(candidates))
		for i, c := range candidates {
			values[i] = c.Value
		}
		v := candidates[moneyutil.LargestAbs(values)].Value
		totals.TotalDue = &v
	}
	return totals
}
