// Package budget holds the per-month category spending ceilings.
//
// Ceilings live only in process memory and reset to the defaults on every start.
package budget

import (
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

var ErrNegativeBudget = errors.New("budget cannot be negative")

// Defaults returns the built-in ceilings in whole Rupiah.
func Defaults() core.Budgets {
	return core.Budgets{
		core.Food:          1500000,
		core.Transport:     500000,
		core.Shopping:      500000,
		core.Bills:         1000000,
		core.Entertainment: 300000,
		core.Other:         300000,
	}
}

// Book maps (month, category) to a ceiling. Months never set fall back to the defaults.
type Book struct {
	mu       sync.RWMutex
	defaults core.Budgets
	months   map[core.MonthKey]core.Budgets
}

// NewBook creates a book. Categories missing from defaults get 0 (no budget).
func NewBook(defaults core.Budgets) *Book {
	d := make(core.Budgets, len(core.Categories()))
	for _, c := range core.Categories() {
		d[c] = defaults[c]
	}
	return &Book{defaults: d, months: make(map[core.MonthKey]core.Budgets)}
}

// For returns a copy of the month's ceilings.
func (b *Book) For(month core.MonthKey) core.Budgets {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src, ok := b.months[month]
	if !ok {
		src = b.defaults
	}
	out := make(core.Budgets, len(src))
	for c, v := range src {
		out[c] = v
	}
	return out
}

// Set changes one category's ceiling for month.
func (b *Book) Set(month core.MonthKey, c core.Category, ceiling int64) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidCategory, string(c))
	}
	if ceiling < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeBudget, c)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.months[month]
	if !ok {
		m = make(core.Budgets, len(b.defaults))
		for k, v := range b.defaults {
			m[k] = v
		}
		b.months[month] = m
	}
	m[c] = ceiling
	return nil
}

// Reset drops the month's overrides.
func (b *Book) Reset(month core.MonthKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.months, month)
}
