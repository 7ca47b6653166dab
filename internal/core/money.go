// Package core provides money parsing and handling utilities.
//
// Amounts are whole Rupiah held in int64; the currency has no subunit in use.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseAmount converts user input to whole Rupiah.
//
// It accepts plain digits ("1500000") and dot-grouped digits ("1.500.000"), optionally
// prefixed with "Rp". A leading minus is parsed so the caller can reject it as non-positive.
//
// Examples:
//
//	ParseAmount("1000")      -> 1000, nil
//	ParseAmount("1.500.000") -> 1500000, nil
//	ParseAmount("0")         -> 0, ErrNonPositiveAmount
//	ParseAmount("12,5")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp"))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if strings.Contains(s, ".") {
		groups := strings.Split(s, ".")
		for i, g := range groups {
			if g == "" || (i > 0 && len(g) != 3) || len(g) > 3 {
				return 0, ErrInvalidAmount
			}
		}
		s = strings.Join(groups, "")
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if neg || v <= 0 {
		return 0, ErrNonPositiveAmount
	}
	return v, nil
}

// FormatRupiah renders an amount as "Rp 1.500.000".
func FormatRupiah(amount int64) string {
	if amount < 0 {
		return "-Rp " + humanize.FormatInteger("#.###,", int(-amount))
	}
	return "Rp " + humanize.FormatInteger("#.###,", int(amount))
}
