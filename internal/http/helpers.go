package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

var templateFuncs = template.FuncMap{
	"rupiah": core.FormatRupiah,
	// width renders a 0..1 ratio as a CSS percentage
	"width": func(ratio float64) string {
		return fmt.Sprintf("%.1f", ratio*100)
	},
}
