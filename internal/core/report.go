package core

import (
	"sort"
)

// Budgets maps each category to its spending ceiling for one month.
type Budgets map[Category]int64

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   int64
}

// BudgetLine compares a category's spend with its ceiling.
type BudgetLine struct {
	Category Category
	Spent    int64
	Budget   int64
	// Ratio is Spent/Budget clamped to [0, 1] for progress display.
	Ratio   float64
	Percent int64
	Unset   bool
	Over    bool
}

// Slice is one segment of the composition chart.
type Slice struct {
	Category Category
	Amount   int64
	Share    float64 // percentage of the month total, 0-100
}

// MonthReport is everything the summary view derives for one month.
type MonthReport struct {
	Month      MonthKey
	Total      int64
	ByCategory []CategoryAmount
	Budget     []BudgetLine
	Slices     []Slice
	Rows       []Transaction
}

// Months returns the distinct months present in rows, most recent first.
func Months(rows []Transaction) []MonthKey {
	seen := make(map[MonthKey]struct{}, len(rows))
	var out []MonthKey
	for _, r := range rows {
		m := r.Month()
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	// YYYY-MM sorts lexically in calendar order
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// NewBudgetLine computes progress for one category.
func NewBudgetLine(c Category, spent, budget int64) BudgetLine {
	line := BudgetLine{Category: c, Spent: spent, Budget: budget}
	if budget <= 0 {
		line.Unset = true
		return line
	}
	ratio := float64(spent) / float64(budget)
	line.Percent = spent * 100 / budget
	line.Over = spent >= budget
	switch {
	case ratio > 1:
		ratio = 1
	case ratio < 0:
		ratio = 0
	}
	line.Ratio = ratio
	return line
}

// BuildMonthReport filters rows to month and derives totals, budget progress,
// chart slices and the row listing (most recent first).
func BuildMonthReport(rows []Transaction, month MonthKey, budgets Budgets) MonthReport {
	report := MonthReport{Month: month}

	spent := make(map[Category]int64, len(categories))
	for _, r := range rows {
		if r.Month() != month {
			continue
		}
		report.Rows = append(report.Rows, r)
		report.Total += r.Amount
		spent[r.Category] += r.Amount
	}
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Date.After(report.Rows[j].Date.Time)
	})

	for _, c := range categories {
		report.ByCategory = append(report.ByCategory, CategoryAmount{Category: c, Amount: spent[c]})
		report.Budget = append(report.Budget, NewBudgetLine(c, spent[c], budgets[c]))
		if spent[c] > 0 && report.Total > 0 {
			share := float64(spent[c]) * 100 / float64(report.Total)
			report.Slices = append(report.Slices, Slice{Category: c, Amount: spent[c], Share: share})
		}
	}
	return report
}

// HasOverBudget reports whether any category reached its ceiling.
func (r MonthReport) HasOverBudget() bool {
	for _, l := range r.Budget {
		if l.Over {
			return true
		}
	}
	return false
}
