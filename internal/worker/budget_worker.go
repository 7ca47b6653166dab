package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Alert records a category crossing its ceiling in one month.
type Alert struct {
	Month    core.MonthKey
	Category core.Category
	Spent    int64
	Budget   int64
}

// BudgetWorker watches transaction events and reports categories that reach their monthly ceiling.
type BudgetWorker struct {
	store   storage.Store
	budgets func(core.MonthKey) core.Budgets
	logger  *applog.Logger

	mu sync.Mutex
	// categories currently over budget, per month
	over map[core.MonthKey]map[core.Category]Alert
}

func NewBudgetWorker(store storage.Store, budgets func(core.MonthKey) core.Budgets, logger *applog.Logger) *BudgetWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetWorker{
		store:   store,
		budgets: budgets,
		logger:  logger.WithComponent(applog.ComponentWorker),
		over:    make(map[core.MonthKey]map[core.Category]Alert),
	}
}

// HandleEvent re-evaluates the month touched by e. It is an events.Handler.
func (w *BudgetWorker) HandleEvent(ctx context.Context, e events.Event) error {
	tx, err := e.Transaction.ToTransaction()
	if err != nil {
		// a payload we cannot read will never succeed; do not requeue it
		w.logger.WarnContext(ctx, "Skipping event with invalid transaction",
			"type", e.Type,
			applog.FieldTransactionID, e.Transaction.ID,
			applog.FieldError, err.Error())
		return nil
	}

	w.logger.DebugContext(ctx, "Processing transaction event",
		"type", e.Type,
		applog.FieldTransactionID, tx.ID,
		applog.FieldMonth, string(tx.Month()))

	rows, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	w.evaluate(ctx, rows, tx.Month())
	return nil
}

// StartupCheck evaluates every month in the table so alerts missed while the worker was down are reported.
func (w *BudgetWorker) StartupCheck(ctx context.Context) error {
	rows, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	months := core.Months(rows)
	for _, m := range months {
		w.evaluate(ctx, rows, m)
	}
	w.logger.InfoContext(ctx, "Startup budget check complete", "months", len(months))
	return nil
}

// OverBudget returns the month's alerts in category order.
func (w *BudgetWorker) OverBudget(month core.MonthKey) []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Alert, 0, len(w.over[month]))
	for _, a := range w.over[month] {
		out = append(out, a)
	}
	order := make(map[core.Category]int)
	for i, c := range core.Categories() {
		order[c] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Category] < order[out[j].Category] })
	return out
}

func (w *BudgetWorker) evaluate(ctx context.Context, rows []core.Transaction, month core.MonthKey) {
	report := core.BuildMonthReport(rows, month, w.budgets(month))

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.over[month]
	next := make(map[core.Category]Alert)
	for _, l := range report.Budget {
		if !l.Over {
			if _, was := prev[l.Category]; was {
				w.logger.InfoContext(ctx, "Category back under budget",
					applog.FieldMonth, string(month),
					applog.FieldCategory, string(l.Category),
					"spent", l.Spent,
					"budget", l.Budget)
			}
			continue
		}
		a := Alert{Month: month, Category: l.Category, Spent: l.Spent, Budget: l.Budget}
		next[l.Category] = a
		if _, was := prev[l.Category]; !was {
			w.logger.WarnContext(ctx, "Category over budget",
				applog.FieldMonth, string(month),
				applog.FieldCategory, string(l.Category),
				"spent", core.FormatRupiah(l.Spent),
				"budget", core.FormatRupiah(l.Budget),
				"percent", l.Percent)
		}
	}

	if len(next) == 0 {
		delete(w.over, month)
		return
	}
	w.over[month] = next
}
