package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingStore struct{ err error }

func (s failingStore) Load(context.Context) ([]core.Transaction, error) { return nil, s.err }
func (s failingStore) Save(context.Context, []core.Transaction) error   { return s.err }

func newTestTracker(t *testing.T, seed []core.Transaction) (*Tracker, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.NewSeeded(seed)
	pub := &recordingPublisher{}
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	tr := NewTracker(store, pub, logger)
	n := 0
	tr.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return tr, store, pub
}

func lunch() NewTransaction {
	return NewTransaction{Date: core.NewDate(2024, 5, 1), Category: core.Food, Description: "lunch", Amount: 1000}
}

func TestAddAppendsAndPublishes(t *testing.T) {
	ctx := context.Background()
	tr, store, pub := newTestTracker(t, nil)

	tx, err := tr.Add(ctx, lunch())
	require.NoError(t, err)
	assert.Equal(t, "id-1", tx.ID)

	rows, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.NewDate(2024, 5, 1), rows[0].Date)
	assert.Equal(t, core.Food, rows[0].Category)
	assert.Equal(t, "lunch", rows[0].Description)
	assert.Equal(t, int64(1000), rows[0].Amount)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeCreated, pub.events[0].Type)
	assert.Equal(t, "id-1", pub.events[0].Transaction.ID)
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	tr, store, pub := newTestTracker(t, nil)

	for _, amount := range []int64{0, -1000} {
		in := lunch()
		in.Amount = amount
		_, err := tr.Add(ctx, in)
		assert.ErrorIs(t, err, core.ErrNonPositiveAmount)
	}

	rows, _ := store.Load(ctx)
	assert.Empty(t, rows)
	assert.Zero(t, store.Saves())
	assert.Empty(t, pub.events)
}

func TestAddRejectsUnknownCategory(t *testing.T) {
	tr, _, _ := newTestTracker(t, nil)
	in := lunch()
	in.Category = "Rent"
	_, err := tr.Add(context.Background(), in)
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
}

func TestAddSucceedsWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	tr, store, pub := newTestTracker(t, nil)
	pub.err = errors.New("broker down")

	_, err := tr.Add(ctx, lunch())
	require.NoError(t, err)
	rows, _ := store.Load(ctx)
	assert.Len(t, rows, 1)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	seed := []core.Transaction{
		{ID: "a", Date: core.NewDate(2024, 5, 1), Category: core.Food, Description: "lunch", Amount: 1000},
		{ID: "b", Date: core.NewDate(2024, 5, 1), Category: core.Food, Description: "lunch", Amount: 1000},
		{ID: "c", Date: core.NewDate(2024, 5, 2), Category: core.Bills, Amount: 5000},
	}
	tr, store, pub := newTestTracker(t, seed)

	removed, err := tr.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	rows, _ := store.Load(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "c", rows[1].ID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeDeleted, pub.events[0].Type)
}

func TestDeleteUnknownIDLeavesTableUnchanged(t *testing.T) {
	ctx := context.Background()
	seed := []core.Transaction{{ID: "a", Date: core.NewDate(2024, 5, 1), Category: core.Food, Amount: 1000}}
	tr, store, pub := newTestTracker(t, seed)

	_, err := tr.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	rows, _ := store.Load(ctx)
	assert.Equal(t, seed, rows)
	assert.Zero(t, store.Saves())
	assert.Empty(t, pub.events)
}

func TestOverviewSelectsRequestedMonth(t *testing.T) {
	ctx := context.Background()
	tr, _, _ := newTestTracker(t, nil)

	for _, in := range []NewTransaction{
		{Date: core.NewDate(2024, 4, 10), Category: core.Bills, Amount: 300000},
		{Date: core.NewDate(2024, 5, 1), Category: core.Food, Amount: 2000000},
		{Date: core.NewDate(2024, 5, 2), Category: core.Transport, Amount: 10000},
	} {
		_, err := tr.Add(ctx, in)
		require.NoError(t, err)
	}

	ov, err := tr.Overview(ctx, "2024-05", func(core.MonthKey) core.Budgets {
		return core.Budgets{core.Food: 1000000}
	})
	require.NoError(t, err)
	assert.Equal(t, []core.MonthKey{"2024-05", "2024-04"}, ov.Months)

	r := ov.Report
	assert.Equal(t, int64(2010000), r.Total)
	assert.True(t, r.Budget[0].Over)
	assert.Equal(t, 1.0, r.Budget[0].Ratio)
}

func TestOverviewFallsBackToMostRecentMonth(t *testing.T) {
	ctx := context.Background()
	seed := []core.Transaction{
		{ID: "a", Date: core.NewDate(2024, 4, 1), Category: core.Food, Amount: 1000},
		{ID: "b", Date: core.NewDate(2024, 6, 1), Category: core.Food, Amount: 2000},
	}
	tr, _, _ := newTestTracker(t, seed)
	budgets := func(core.MonthKey) core.Budgets { return nil }

	ov, err := tr.Overview(ctx, "2023-01", budgets)
	require.NoError(t, err)
	assert.False(t, ov.Empty)
	assert.Equal(t, core.MonthKey("2024-06"), ov.Report.Month)

	ov, err = tr.Overview(ctx, "2024-04", budgets)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ov.Report.Total)
}

func TestOverviewEmptyTable(t *testing.T) {
	tr, _, _ := newTestTracker(t, nil)
	ov, err := tr.Overview(context.Background(), "", func(core.MonthKey) core.Budgets { return nil })
	require.NoError(t, err)
	assert.True(t, ov.Empty)
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("malformed")
	tr := NewTracker(failingStore{err: boom}, nil, applog.New(applog.Config{Output: &bytes.Buffer{}}))

	_, err := tr.Add(context.Background(), lunch())
	assert.ErrorIs(t, err, boom)
	_, err = tr.Delete(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	_, err = tr.Overview(context.Background(), "", func(core.MonthKey) core.Budgets { return nil })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, tr.Ready(context.Background()), boom)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tr := NewTracker(store, nil, applog.New(applog.Config{Output: &bytes.Buffer{}}))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Add(ctx, lunch())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, _ := store.Load(ctx)
	assert.Len(t, rows, 25)
}
