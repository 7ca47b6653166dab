// Package chart turns report slices into SVG donut geometry.
package chart

import (
	"fmt"
	"math"
	"strings"

	"fintrack/internal/core"
)

const (
	// HoleRatio is the inner radius as a fraction of the outer radius.
	HoleRatio = 0.55
	size      = 220.0
	radius    = 100.0
	// largest fraction of a turn drawn as a single arc
	maxArc    = 0.999
)

var palette = map[core.Category]string{
	core.Food:          "#636efa",
	core.Transport:     "#ef553b",
	core.Shopping:      "#00cc96",
	core.Bills:         "#ab63fa",
	core.Entertainment: "#ffa15a",
	core.Other:         "#19d3f3",
}

// Color returns the fill color used for c.
func Color(c core.Category) string {
	if col, ok := palette[c]; ok {
		return col
	}
	return "#999999"
}

// Segment is one arc of the donut.
type Segment struct {
	Category core.Category
	Amount   int64
	Share    float64
	Path     string
	Color    string
	Label    string
}

// Donut is ready for rendering as an SVG of Size x Size.
type Donut struct {
	Size     float64
	Segments []Segment
}

func (d Donut) ViewBox() string {
	return fmt.Sprintf("0 0 %s %s", num(d.Size), num(d.Size))
}

// Build lays out slices clockwise from twelve o'clock. Slices must have positive shares.
func Build(slices []core.Slice) Donut {
	d := Donut{Size: size}
	var total float64
	for _, s := range slices {
		total += s.Share
	}
	if total <= 0 {
		return d
	}

	c := size / 2
	inner := radius * HoleRatio
	start := 0.0
	for _, s := range slices {
		frac := s.Share / total
		end := start + frac

		var path string
		if len(slices) == 1 {
			path = ring(c, radius, inner)
		} else {
			// an arc whose endpoints coincide draws nothing
			path = arc(c, radius, inner, start, start+math.Min(frac, maxArc))
		}
		d.Segments = append(d.Segments, Segment{
			Category: s.Category,
			Amount:   s.Amount,
			Share:    s.Share,
			Path:     path,
			Color:    Color(s.Category),
			Label:    fmt.Sprintf("%s %.1f%%", s.Category, s.Share),
		})
		start = end
	}
	return d
}

// point returns the coordinates at fraction f of a full turn, starting at twelve o'clock.
func point(c, r, f float64) (float64, float64) {
	a := 2*math.Pi*f - math.Pi/2
	return c + r*math.Cos(a), c + r*math.Sin(a)
}

func arc(c, outer, inner, from, to float64) string {
	large := 0
	if to-from > 0.5 {
		large = 1
	}
	ox1, oy1 := point(c, outer, from)
	ox2, oy2 := point(c, outer, to)
	ix2, iy2 := point(c, inner, to)
	ix1, iy1 := point(c, inner, from)

	var b strings.Builder
	fmt.Fprintf(&b, "M %s %s ", num(ox1), num(oy1))
	fmt.Fprintf(&b, "A %s %s 0 %d 1 %s %s ", num(outer), num(outer), large, num(ox2), num(oy2))
	fmt.Fprintf(&b, "L %s %s ", num(ix2), num(iy2))
	fmt.Fprintf(&b, "A %s %s 0 %d 0 %s %s Z", num(inner), num(inner), large, num(ix1), num(iy1))
	return b.String()
}

// ring draws a full annulus as two half-circle pairs; render with fill-rule evenodd.
func ring(c, outer, inner float64) string {
	top, bottom := c-outer, c+outer
	itop, ibottom := c-inner, c+inner
	return fmt.Sprintf("M %s %s A %s %s 0 1 1 %s %s A %s %s 0 1 1 %s %s Z M %s %s A %s %s 0 1 0 %s %s A %s %s 0 1 0 %s %s Z",
		num(c), num(top), num(outer), num(outer), num(c), num(bottom), num(outer), num(outer), num(c), num(top),
		num(c), num(itop), num(inner), num(inner), num(c), num(ibottom), num(inner), num(inner), num(c), num(itop))
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}
