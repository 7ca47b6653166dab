package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id string, y, m, d int, c Category, desc string, amount int64) Transaction {
	return Transaction{ID: id, Date: NewDate(y, m, d), Category: c, Description: desc, Amount: amount}
}

func sampleRows() []Transaction {
	return []Transaction{
		tx("1", 2024, 4, 30, Bills, "electricity", 350000),
		tx("2", 2024, 5, 1, Food, "lunch", 25000),
		tx("3", 2024, 5, 3, Transport, "train", 15000),
		tx("4", 2024, 5, 3, Food, "dinner", 60000),
		tx("5", 2023, 12, 24, Shopping, "gift", 200000),
		tx("6", 2024, 5, 20, Entertainment, "", 100000),
	}
}

func TestMonthsDistinctMostRecentFirst(t *testing.T) {
	assert.Equal(t, []MonthKey{"2024-05", "2024-04", "2023-12"}, Months(sampleRows()))
	assert.Empty(t, Months(nil))
}

func TestBuildMonthReportTotals(t *testing.T) {
	r := BuildMonthReport(sampleRows(), "2024-05", defaultBudgets())

	assert.Equal(t, int64(200000), r.Total)
	require.Len(t, r.ByCategory, 6)

	var sum int64
	for _, ca := range r.ByCategory {
		sum += ca.Amount
	}
	assert.Equal(t, r.Total, sum)

	byCat := map[Category]int64{}
	for _, ca := range r.ByCategory {
		byCat[ca.Category] = ca.Amount
	}
	assert.Equal(t, int64(85000), byCat[Food])
	assert.Equal(t, int64(0), byCat[Bills])
}

func TestBuildMonthReportRowsMostRecentFirst(t *testing.T) {
	r := BuildMonthReport(sampleRows(), "2024-05", nil)
	ids := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		ids = append(ids, row.ID)
	}
	// equal dates keep table order
	assert.Equal(t, []string{"6", "3", "4", "2"}, ids)
}

func TestBuildMonthReportSlices(t *testing.T) {
	r := BuildMonthReport(sampleRows(), "2024-05", nil)
	require.Len(t, r.Slices, 3)

	var share float64
	for _, s := range r.Slices {
		assert.Positive(t, s.Amount)
		share += s.Share
	}
	assert.InDelta(t, 100.0, share, 0.0001)
	assert.Equal(t, Food, r.Slices[0].Category)
	assert.InDelta(t, 42.5, r.Slices[0].Share, 0.0001)
}

func TestBudgetLineClampsAndFlagsOverBudget(t *testing.T) {
	l := NewBudgetLine(Food, 2000000, 1000000)
	assert.Equal(t, 1.0, l.Ratio)
	assert.Equal(t, int64(200), l.Percent)
	assert.True(t, l.Over)
	assert.False(t, l.Unset)

	l = NewBudgetLine(Food, 1000000, 1000000)
	assert.Equal(t, 1.0, l.Ratio)
	assert.True(t, l.Over)

	l = NewBudgetLine(Transport, 125000, 500000)
	assert.Equal(t, 0.25, l.Ratio)
	assert.Equal(t, int64(25), l.Percent)
	assert.False(t, l.Over)
}

func TestBudgetLineUnsetBudget(t *testing.T) {
	l := NewBudgetLine(Other, 50000, 0)
	assert.True(t, l.Unset)
	assert.False(t, l.Over)
	assert.Zero(t, l.Ratio)
}

func TestBuildMonthReportOverBudget(t *testing.T) {
	rows := []Transaction{tx("1", 2024, 6, 1, Food, "party", 2000000)}
	r := BuildMonthReport(rows, "2024-06", Budgets{Food: 1000000})
	assert.True(t, r.HasOverBudget())
	assert.Equal(t, 1.0, r.Budget[0].Ratio)
	for _, l := range r.Budget[1:] {
		assert.True(t, l.Unset)
	}
}

func TestBuildMonthReportUnknownMonthIsEmpty(t *testing.T) {
	r := BuildMonthReport(sampleRows(), "2020-01", nil)
	assert.Zero(t, r.Total)
	assert.Empty(t, r.Rows)
	assert.Empty(t, r.Slices)
	assert.Len(t, r.Budget, 6)
}

func defaultBudgets() Budgets {
	return Budgets{Food: 1500000, Transport: 500000, Shopping: 500000, Bills: 1000000, Entertainment: 300000, Other: 300000}
}
