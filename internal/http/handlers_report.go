package http

import (
	"net/http"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// budgetStep is the granularity of the budget inputs, in Rupiah.
const budgetStep = 50000

const budgetActionReset = "reset"

type monthOption struct {
	Key      core.MonthKey
	Label    string
	Selected bool
}

type reportView struct {
	Months     []monthOption
	Month      core.MonthKey
	MonthLabel string
	Total      int64
	Warn       bool
	OverBudget []core.Category
	Budget     []core.BudgetLine
	BudgetStep int64
	Donut      chart.Donut
	Rows       []core.Transaction
}

func newReportView(ov services.Overview) reportView {
	rep := ov.Report
	v := reportView{
		Month:      rep.Month,
		MonthLabel: rep.Month.Label(),
		Total:      rep.Total,
		Warn:       rep.HasOverBudget(),
		Budget:     rep.Budget,
		BudgetStep: budgetStep,
		Donut:      chart.Build(rep.Slices),
		Rows:       rep.Rows,
	}
	for _, m := range ov.Months {
		v.Months = append(v.Months, monthOption{Key: m, Label: m.Label(), Selected: m == rep.Month})
	}
	if v.Warn {
		for _, l := range rep.Budget {
			if l.Over {
				v.OverBudget = append(v.OverBudget, l.Category)
			}
		}
	}
	return v
}

// handleReport renders the summary partial for ?month=YYYY-MM, defaulting to the most recent month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.writeReport(w, r, ParseMonthParam(r.URL.Query()), nil)
}

// handleUpdateBudgets stores the submitted ceilings for the month and re-renders the report.
// action=reset drops the month's overrides instead.
func (s *Server) handleUpdateBudgets(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form").Write(w)
		return
	}

	month := ParseMonthParam(r.PostForm)
	if month == "" {
		UnprocessableEntityWarning(msgMonthInvalid).Header("HX-Reswap", "none").Write(w)
		return
	}

	if r.PostForm.Get("action") == budgetActionReset {
		s.budgets.Reset(month)
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Budgets reset to defaults",
			applog.FieldMonth, string(month),
			applog.FieldOperation, applog.OpSave)
		s.writeReport(w, r, month, func(b *HTMXResponseBuilder) {
			b.TriggerSuccessNotification("Budgets reset to defaults")
		})
		return
	}

	budgets, err := ParseBudgetForm(r.PostForm)
	if err != nil {
		UnprocessableEntityWarning(err.Error()).Header("HX-Reswap", "none").Write(w)
		return
	}
	for c, ceiling := range budgets {
		if err := s.budgets.Set(month, c, ceiling); err != nil {
			UnprocessableEntityWarning(msgBudgetInvalid).Header("HX-Reswap", "none").Write(w)
			return
		}
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budgets updated",
		applog.FieldMonth, string(month),
		applog.FieldOperation, applog.OpSave)

	s.writeReport(w, r, month, func(b *HTMXResponseBuilder) {
		b.TriggerSuccessNotification("Budgets updated")
	})
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, month core.MonthKey, decorate func(*HTMXResponseBuilder)) {
	ctx := r.Context()

	ov, err := s.tracker.Overview(ctx, month, s.budgets.For)
	if err != nil {
		s.storageFailure(w, r, "Failed to build report", err, applog.OpReport)
		return
	}

	var body []byte
	if ov.Empty {
		body, err = s.render("empty.html", nil)
	} else {
		body, err = s.render("report.html", newReportView(ov))
	}
	if err != nil {
		applog.FromContext(ctx).LogError(ctx, "Failed to render report", err, applog.OpRender, nil)
		InternalServerError("Could not render the report").Write(w)
		return
	}

	resp := NewHTMXResponse().BodyHTML(body)
	if decorate != nil {
		decorate(resp)
	}
	resp.Write(w)
}
