package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// NewTransaction is the user input for Add.
type NewTransaction struct {
	Date        core.Date
	Category    core.Category
	Description string
	Amount      int64
}

// Tracker orchestrates load, mutate and save against the store for every interaction,
// and announces each change to the publisher.
type Tracker struct {
	store     storage.Store
	publisher events.Publisher
	logger    *applog.Logger
	newID     func() string

	// serializes read-modify-write cycles within the process
	mu sync.Mutex
}

func NewTracker(store storage.Store, publisher events.Publisher, logger *applog.Logger) *Tracker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Tracker{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentTracker),
		newID:     uuid.NewString,
	}
}

// Add validates in, appends it with a fresh ID and saves the table.
func (t *Tracker) Add(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	tx := core.Transaction{
		Date:        in.Date,
		Category:    in.Category,
		Description: in.Description,
		Amount:      in.Amount,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.store.Load(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transactions: %w", err)
	}

	tx.ID = t.newID()
	rows = append(rows, tx)
	if err := t.store.Save(ctx, rows); err != nil {
		return core.Transaction{}, fmt.Errorf("save transactions: %w", err)
	}

	t.logger.InfoContext(ctx, "Transaction added",
		applog.NewFields().
			WithTransaction(tx.ID, tx.Date.ISO(), string(tx.Category), tx.Amount).
			WithOperation(applog.OpCreate).
			ToSlice()...)

	t.publish(ctx, events.Created(tx))
	return tx, nil
}

// Delete removes the row with id and saves the table.
func (t *Tracker) Delete(ctx context.Context, id string) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.store.Load(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transactions: %w", err)
	}

	idx := -1
	for i, r := range rows {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}

	removed := rows[idx]
	rows = append(rows[:idx], rows[idx+1:]...)
	if err := t.store.Save(ctx, rows); err != nil {
		return core.Transaction{}, fmt.Errorf("save transactions: %w", err)
	}

	t.logger.InfoContext(ctx, "Transaction deleted",
		applog.NewFields().
			WithTransaction(removed.ID, removed.Date.ISO(), string(removed.Category), removed.Amount).
			WithOperation(applog.OpDelete).
			ToSlice()...)

	t.publish(ctx, events.Deleted(removed))
	return removed, nil
}

// All returns the full table in stored order.
func (t *Tracker) All(ctx context.Context) ([]core.Transaction, error) {
	rows, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return rows, nil
}

// Overview bundles what the summary view needs in a single load.
type Overview struct {
	Months []core.MonthKey
	Report core.MonthReport
	Empty  bool
}

// Overview resolves the selected month (falling back to the most recent one) and builds its report.
// budgetsFor supplies the ceilings of the resolved month.
func (t *Tracker) Overview(ctx context.Context, requested core.MonthKey, budgetsFor func(core.MonthKey) core.Budgets) (Overview, error) {
	rows, err := t.All(ctx)
	if err != nil {
		return Overview{}, err
	}
	months := core.Months(rows)
	if len(months) == 0 {
		return Overview{Empty: true}, nil
	}

	selected := months[0]
	for _, m := range months {
		if m == requested {
			selected = m
			break
		}
	}
	return Overview{
		Months: months,
		Report: core.BuildMonthReport(rows, selected, budgetsFor(selected)),
	}, nil
}

// Ready verifies the store can be read.
func (t *Tracker) Ready(ctx context.Context) error {
	_, err := t.store.Load(ctx)
	return err
}

func (t *Tracker) publish(ctx context.Context, e events.Event) {
	if err := t.publisher.Publish(ctx, e); err != nil {
		// the table is already saved; delivery is best effort
		t.logger.LogError(ctx, "Failed to publish transaction event", err, applog.OpPublish,
			applog.NewFields().WithTransaction(e.Transaction.ID, e.Transaction.Date, e.Transaction.Category, e.Transaction.Amount))
	}
}

// Close releases the publisher.
func (t *Tracker) Close() error {
	if err := t.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
