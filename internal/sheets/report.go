package sheets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/house-money/internal/model"
)

// Report is everything written to the spreadsheet in one push.
type Report struct {
	Generated    time.Time
	Start        *time.Time
	End          *time.Time // Exclusive
	Transactions []model.Transaction
	ByTag        []model.TagSpending
	Monthly      []model.MonthlyTotal
}

// Totals returns the income and expense sums of the report's transactions.
func (r *Report) Totals() (income, expenses decimal.Decimal) {
	for _, t := range r.Transactions {
		if t.Amount.IsNegative() {
			expenses = expenses.Add(t.Amount)
		} else {
			income = income.Add(t.Amount)
		}
	}
	return income, expenses
}

// period describes the date range covered by the report.
func (r *Report) period() string {
	const layout = "Jan 2, 2006"
	switch {
	case r.Start != nil && r.End != nil:
		return r.Start.Format(layout) + " - " + r.End.AddDate(0, 0, -1).Format(layout)
	case r.Start != nil:
		return "Since " + r.Start.Format(layout)
	case r.End != nil:
		return "Until " + r.End.AddDate(0, 0, -1).Format(layout)
	default:
		return "All transactions"
	}
}
