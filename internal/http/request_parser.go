// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// User-facing validation messages
const (
	msgAmountNotPositive = "Amount must be greater than 0"
	msgAmountInvalid     = "Amount must be a whole number of Rupiah"
	msgCategoryInvalid   = "Please choose a valid category"
	msgDateInvalid       = "Please enter a valid date"
	msgDescriptionLong   = "Description is too long (max 200 characters)"
	msgBudgetInvalid     = "Budgets must be whole numbers of at least 0"
	msgMonthInvalid      = "Unknown month"
)

// validationMessage maps domain validation errors to user-facing text.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrNonPositiveAmount):
		return msgAmountNotPositive
	case errors.Is(err, core.ErrInvalidAmount):
		return msgAmountInvalid
	case errors.Is(err, core.ErrInvalidCategory):
		return msgCategoryInvalid
	case errors.Is(err, core.ErrInvalidDate):
		return msgDateInvalid
	case errors.Is(err, core.ErrDescriptionTooLong):
		return msgDescriptionLong
	default:
		return "Invalid input"
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrNonPositiveAmount, core.ErrInvalidAmount, core.ErrInvalidCategory,
		core.ErrInvalidDate, core.ErrDescriptionTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ParseTransactionForm reads date, category, description and amount.
// A missing date defaults to today.
func ParseTransactionForm(form url.Values) (services.NewTransaction, error) {
	var in services.NewTransaction

	if v := strings.TrimSpace(form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return in, err
		}
		in.Date = d
	} else {
		in.Date = core.Today()
	}

	c, err := core.ParseCategory(form.Get("category"))
	if err != nil {
		return in, err
	}
	in.Category = c

	in.Description = sanitizeInput(form.Get("description"))

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return in, err
	}
	in.Amount = amount
	return in, nil
}

// ParseMonthParam returns the requested month or "" when absent or malformed.
func ParseMonthParam(query url.Values) core.MonthKey {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return ""
	}
	m, err := core.ParseMonthKey(v)
	if err != nil {
		return ""
	}
	return m
}

// ParseBudgetForm reads budget_<Category> fields. Blank fields are left out.
func ParseBudgetForm(form url.Values) (core.Budgets, error) {
	out := make(core.Budgets)
	for _, c := range core.Categories() {
		raw := strings.TrimSpace(form.Get("budget_" + string(c)))
		if raw == "" {
			continue
		}
		raw = strings.ReplaceAll(strings.TrimPrefix(raw, "Rp"), ".", "")
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || n < 0 {
			return nil, errors.New(msgBudgetInvalid)
		}
		out[c] = n
	}
	return out, nil
}
