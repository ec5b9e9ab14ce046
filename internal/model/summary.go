package model

import "github.com/shopspring/decimal"

// TagSpending is the total amount and count of transactions carrying a tag.
// Untagged transactions are reported under an empty Tag.
type TagSpending struct {
	Tag   string
	Total decimal.Decimal
	Count int
}

// MonthlyTotal aggregates transactions for one calendar month ("2006-01").
type MonthlyTotal struct {
	Month    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Count    int
}

// Net returns income plus expenses (expenses are negative).
func (m MonthlyTotal) Net() decimal.Decimal {
	return m.Income.Add(m.Expenses)
}
