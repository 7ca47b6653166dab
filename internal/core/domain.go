package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Category is one of the fixed expense categories.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

var categories = []Category{Food, Transport, Shopping, Bills, Entertainment, Other}

const (
	isoLayout      = "2006-01-02"
	monthLayout    = "2006-01"
	maxDescription = 200
)

type (
	Date struct {
		time.Time
	}

	// MonthKey is a year-month grouping key formatted as YYYY-MM.
	MonthKey string

	Transaction struct {
		ID          string
		Date        Date
		Category    Category
		Description string
		Amount      int64 // whole Rupiah
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNonPositiveAmount  = errors.New("amount must be greater than 0")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// Categories returns the categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches s against the category set, ignoring case and surrounding spaces.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(isoLayout)
}

// Month returns the year-month key of the date.
func (d Date) Month() MonthKey {
	return MonthKey(d.Format(monthLayout))
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey(t.Format(monthLayout)), nil
}

// Label renders the month as e.g. "May 2024".
func (m MonthKey) Label() string {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return string(m)
	}
	return t.Format("January 2006")
}

func (m MonthKey) String() string {
	return string(m)
}

func (t Transaction) Month() MonthKey {
	return t.Date.Month()
}

// Validate checks a transaction being entered, including the description length cap.
func (t Transaction) Validate() error {
	if err := t.ValidateStored(); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > maxDescription {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateStored checks the fields a persisted row must satisfy. Descriptions are free text here.
func (t Transaction) ValidateStored() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(t.Category))
	}
	if t.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}
