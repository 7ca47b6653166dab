package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/csvfile"
	"fintrack/internal/storage/memory"
)

func seedRows() []core.Transaction {
	return []core.Transaction{
		{ID: "apr-1", Date: core.NewDate(2024, 4, 30), Category: core.Bills, Description: "electricity", Amount: 350000},
		{ID: "may-1", Date: core.NewDate(2024, 5, 1), Category: core.Food, Description: "lunch", Amount: 25000},
		{ID: "may-2", Date: core.NewDate(2024, 5, 3), Category: core.Food, Description: "dinner", Amount: 60000},
	}
}

type testEnv struct {
	server *Server
	book   *budget.Book
}

func newTestServer(t *testing.T, store storage.Store, opts ...Option) *testEnv {
	t.Helper()
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	tracker := services.NewTracker(store, nil, logger)
	book := budget.NewBook(budget.Defaults())
	s, err := NewServer(":0", tracker, book, logger, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testEnv{server: s, book: book}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func triggers(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := rec.Header().Get("HX-Trigger")
	require.NotEmpty(t, raw)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func lunchForm() url.Values {
	return url.Values{
		"date":        {"2024-05-01"},
		"category":    {"Food"},
		"description": {"lunch"},
		"amount":      {"1000"},
	}
}

func TestIndexRendersInputForm(t *testing.T) {
	env := newTestServer(t, memory.New())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="transaction-form"`)
	assert.Contains(t, body, core.Today().ISO())
	for _, c := range core.Categories() {
		assert.Contains(t, body, `<option value="`+string(c)+`">`)
	}
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateTransaction(t *testing.T) {
	store := memory.New()
	env := newTestServer(t, store)

	rec := env.do(formRequest(http.MethodPost, "/transactions", lunchForm(), true))
	require.Equal(t, http.StatusOK, rec.Code)

	trig := triggers(t, rec)
	assert.Contains(t, trig, EventFormReset)
	assert.Contains(t, trig, EventReportRefresh)
	assert.Contains(t, trig, EventNotification)

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-05-01", rows[0].Date.ISO())
	assert.Equal(t, core.Food, rows[0].Category)
	assert.Equal(t, "lunch", rows[0].Description)
	assert.Equal(t, int64(1000), rows[0].Amount)
	assert.NotEmpty(t, rows[0].ID)
}

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []string{"0", "-5000"} {
		store := memory.New()
		env := newTestServer(t, store)

		form := lunchForm()
		form.Set("amount", amount)
		rec := env.do(formRequest(http.MethodPost, "/transactions", form, true))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "amount %s", amount)
		assert.Contains(t, rec.Body.String(), "Amount must be greater than 0")
		assert.Zero(t, store.Saves())
	}
}

func TestCreateTransactionRejectsInvalidFields(t *testing.T) {
	cases := map[string]string{
		"category": "Groceries",
		"date":     "31/12/2024",
		"amount":   "ten",
	}
	for field, value := range cases {
		store := memory.New()
		env := newTestServer(t, store)

		form := lunchForm()
		form.Set(field, value)
		rec := env.do(formRequest(http.MethodPost, "/transactions", form, true))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, field)
		assert.Zero(t, store.Saves(), field)
	}
}

func TestCreateTransactionWithoutHTMXRedirects(t *testing.T) {
	env := newTestServer(t, memory.New())
	rec := env.do(formRequest(http.MethodPost, "/transactions", lunchForm(), false))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestReportEmptyState(t *testing.T) {
	env := newTestServer(t, memory.New())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/ui/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data yet")
}

func TestReportDefaultsToMostRecentMonth(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))

	for _, target := range []string{"/ui/report", "/ui/report?month=2020-01", "/ui/report?month=bogus"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code, target)
		body := rec.Body.String()
		assert.Contains(t, body, "Total spending, May 2024", target)
		assert.Contains(t, body, "Rp 85.000", target)
		assert.Contains(t, body, `<option value="2024-05" selected>`, target)
	}
}

func TestReportSelectedMonth(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/ui/report?month=2024-04", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Total spending, April 2024")
	assert.Contains(t, body, "Rp 350.000")
	assert.Contains(t, body, "electricity")
	assert.NotContains(t, body, "dinner")
	assert.Contains(t, body, "Bills 100.0%")
}

func TestReportFlagsOverBudget(t *testing.T) {
	rows := []core.Transaction{
		{ID: "big", Date: core.NewDate(2024, 6, 1), Category: core.Food, Description: "party", Amount: 2000000},
	}
	env := newTestServer(t, memory.NewSeeded(rows))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/ui/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Food is over budget!")
	assert.Contains(t, body, `style="width: 100.0%"`)
	assert.NotContains(t, body, "Transport is over budget!")
}

func TestUpdateBudgets(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))

	form := url.Values{"month": {"2024-05"}, "budget_Food": {"50000"}, "budget_Other": {""}}
	rec := env.do(formRequest(http.MethodPost, "/budgets", form, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Food is over budget!")
	assert.Equal(t, int64(50000), env.book.For("2024-05")[core.Food])
	assert.Equal(t, budget.Defaults()[core.Other], env.book.For("2024-05")[core.Other])
	assert.Equal(t, budget.Defaults()[core.Food], env.book.For("2024-04")[core.Food])
}

func TestResetBudgetsRestoresDefaults(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))
	require.NoError(t, env.book.Set("2024-05", core.Food, 50000))

	rec := env.do(formRequest(http.MethodGet, "/ui/report?month=2024-05", nil, true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="alerts"`)

	form := url.Values{"month": {"2024-05"}, "action": {"reset"}, "budget_Food": {"1000"}}
	rec = env.do(formRequest(http.MethodPost, "/budgets", form, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, budget.Defaults(), env.book.For("2024-05"))
	assert.NotContains(t, rec.Body.String(), `class="alerts"`)
	assert.NotContains(t, rec.Body.String(), "is over budget!")
	assert.Contains(t, string(triggers(t, rec)[EventNotification]), "Budgets reset to defaults")
}

func TestUpdateBudgetsRejectsBadInput(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))

	for _, form := range []url.Values{
		{"month": {"2024-05"}, "budget_Food": {"-1"}},
		{"month": {"2024-05"}, "budget_Food": {"lots"}},
		{"budget_Food": {"1000"}},
	} {
		rec := env.do(formRequest(http.MethodPost, "/budgets", form, true))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, form.Encode())
		assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
	}
	assert.Equal(t, budget.Defaults()[core.Food], env.book.For("2024-05")[core.Food])
}

func TestDeleteTransaction(t *testing.T) {
	store := memory.NewSeeded(seedRows())
	env := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodDelete, "/transactions/may-2", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, triggers(t, rec), EventReportRefresh)

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, "may-2", r.ID)
	}
}

func TestDeleteUnknownTransaction(t *testing.T) {
	store := memory.NewSeeded(seedRows())
	env := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodDelete, "/transactions/nope", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Transaction not found")
	assert.Zero(t, store.Saves())

	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestDeleteFormFallbackRedirects(t *testing.T) {
	store := memory.NewSeeded(seedRows())
	env := newTestServer(t, store)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/transactions/apr-1/delete", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rows, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExportCSV(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/export/transactions.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="transactions.csv"`)

	rows, err := csvfile.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, seedRows(), rows)
}

func TestExportXLSX(t *testing.T) {
	env := newTestServer(t, memory.NewSeeded(seedRows()))
	rec := env.do(httptest.NewRequest(http.MethodGet, "/export/transactions.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestMalformedFileReturnsServerErrorAndRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,date,category,description,amount\nx,2024-05-01,Food,lunch,abc\n"), 0o644))
	env := newTestServer(t, csvfile.New(path))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/ui/report", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not read")

	rec = env.do(formRequest(http.MethodPost, "/transactions", lunchForm(), true))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.NoError(t, os.WriteFile(path, []byte("id,date,category,description,amount\nx,2024-05-01,Food,lunch,1000\n"), 0o644))
	rec = env.do(httptest.NewRequest(http.MethodGet, "/ui/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rp 1.000")
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestServer(t, memory.New())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	path := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("nonsense\n"), 0o644))
	broken := newTestServer(t, csvfile.New(path))
	rec = broken.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaticAssetsAreCached(t *testing.T) {
	env := newTestServer(t, memory.New())
	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=3600")
}

func TestFormResetRestoresRenderedDefaults(t *testing.T) {
	env := newTestServer(t, memory.New())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="date" value="`+core.Today().ISO()+`"`)
	assert.Contains(t, body, `name="amount" min="0" step="1000" value="0"`)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	script := rec.Body.String()
	assert.Contains(t, script, "'"+EventFormReset+"'")
	assert.Contains(t, script, "form.reset()")
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	store := memory.New()
	env := newTestServer(t, store, WithRateLimit(1))

	rec := env.do(formRequest(http.MethodPost, "/transactions", lunchForm(), true))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(formRequest(http.MethodPost, "/transactions", lunchForm(), true))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, store.Saves())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/ui/report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
