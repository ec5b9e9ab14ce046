// Package sample generates realistic bank CSV files for trying out imports.
package sample

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// Row is one generated CSV line in the standard import layout.
type Row struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Tags        string `csv:"Tags"`
}

type category struct {
	name      string
	merchants []string
	min, max  float64
	income    bool
}

var categories = []category{
	{name: "Groceries", min: 20, max: 200, merchants: []string{
		"Walmart", "Target", "Whole Foods", "Trader Joes", "Kroger", "Costco", "Safeway", "Grocery Store", "Supermarket",
	}},
	{name: "Dining", min: 10, max: 100, merchants: []string{
		"Restaurant", "Cafe", "Coffee Shop", "Fast Food", "Pizza Place", "Food Delivery", "Takeout", "Dinner", "Lunch", "Breakfast",
	}},
	{name: "Transportation", min: 15, max: 150, merchants: []string{
		"Gas Station", "Uber", "Lyft", "Taxi", "Public Transit", "Parking", "Car Maintenance", "Auto Parts", "Oil Change",
	}},
	{name: "Shopping", min: 25, max: 300, merchants: []string{
		"Amazon", "Online Store", "Department Store", "Clothing Store", "Electronics Store", "Home Goods", "Furniture Store",
	}},
	{name: "Entertainment", min: 10, max: 200, merchants: []string{
		"Movie Theater", "Streaming Service", "Concert", "Theater", "Sports Event", "Gym", "Fitness Center", "Hobby Store",
	}},
	{name: "Utilities", min: 50, max: 300, merchants: []string{
		"Electric Bill", "Water Bill", "Internet", "Phone Bill", "Cable TV", "Gas Bill", "Utility Payment",
	}},
	{name: "Housing", min: 500, max: 3000, merchants: []string{
		"Rent", "Mortgage", "Home Repair", "Home Improvement", "Property Tax", "Home Insurance",
	}},
	{name: "Healthcare", min: 20, max: 500, merchants: []string{
		"Doctor Visit", "Pharmacy", "Medical Supplies", "Health Insurance", "Dental", "Vision", "Medical Bill",
	}},
	{name: "Income", min: 1500, max: 4000, income: true, merchants: []string{
		"Payroll Deposit", "Direct Deposit", "Employer Payment",
	}},
}

// Generator produces sample rows. A fixed seed yields the same rows on
// every run.
type Generator struct {
	faker *gofakeit.Faker
	start time.Time
	end   time.Time
}

// NewGenerator creates a generator for dates in [start, end]. Seed 0 picks a
// random seed.
func NewGenerator(seed int64, start, end time.Time) *Generator {
	if end.Before(start) {
		start, end = end, start
	}
	return &Generator{
		faker: gofakeit.New(seed),
		start: start,
		end:   end,
	}
}

// Rows generates n rows ordered by date. Spending is negative.
func (g *Generator) Rows(n int) []Row {
	type dated struct {
		date time.Time
		row  Row
	}

	out := make([]dated, 0, n)
	for range n {
		c := categories[g.faker.Number(0, len(categories)-1)]
		amount := decimal.NewFromFloat(g.faker.Float64Range(c.min, c.max)).Round(2)
		if !c.income {
			amount = amount.Neg()
		}
		date := g.faker.DateRange(g.start, g.end)

		out = append(out, dated{date: date, row: Row{
			Date:        date.Format(time.DateOnly),
			Description: g.faker.RandomString(c.merchants),
			Amount:      amount.StringFixed(2),
			Tags:        c.name,
		}})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })

	rows := make([]Row, len(out))
	for i, d := range out {
		rows[i] = d.row
	}
	return rows
}

// WriteCSV writes n generated rows with a header line to w.
func (g *Generator) WriteCSV(w io.Writer, n int) error {
	if n <= 0 {
		return fmt.Errorf("row count must be positive, got %d", n)
	}
	rows := g.Rows(n)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write sample CSV: %w", err)
	}
	return nil
}
