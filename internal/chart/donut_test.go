package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestBuildEmpty(t *testing.T) {
	d := Build(nil)
	assert.Empty(t, d.Segments)
	assert.Equal(t, "0 0 220 220", d.ViewBox())
}

func TestBuildSingleSliceIsRing(t *testing.T) {
	d := Build([]core.Slice{{Category: core.Food, Amount: 1000, Share: 100}})
	require.Len(t, d.Segments, 1)
	seg := d.Segments[0]
	assert.Equal(t, "Food 100.0%", seg.Label)
	assert.Equal(t, Color(core.Food), seg.Color)
	// two closed subpaths: outer circle and hole
	assert.Equal(t, 2, strings.Count(seg.Path, "Z"))
	assert.True(t, strings.HasPrefix(seg.Path, "M 110 10 "))
}

func TestBuildDominantSliceLeavesRoomForOthers(t *testing.T) {
	d := Build([]core.Slice{
		{Category: core.Bills, Amount: 999990, Share: 99.999},
		{Category: core.Food, Amount: 10, Share: 0.001},
	})
	require.Len(t, d.Segments, 2)

	// arcs, not a ring: one closed subpath each
	for _, seg := range d.Segments {
		assert.Equal(t, 1, strings.Count(seg.Path, "Z"), seg.Category)
	}
	dominant := d.Segments[0].Path
	assert.True(t, strings.HasPrefix(dominant, "M 110 10 A 100 100 0 1 1 "))
	assert.NotContains(t, dominant, "A 100 100 0 1 1 110 10 ")
}

func TestBuildHalves(t *testing.T) {
	d := Build([]core.Slice{
		{Category: core.Food, Amount: 500, Share: 50},
		{Category: core.Bills, Amount: 500, Share: 50},
	})
	require.Len(t, d.Segments, 2)

	// first half starts at twelve o'clock and ends at six
	assert.Equal(t, "M 110 10 A 100 100 0 0 1 110 210 L 110 165 A 55 55 0 0 0 110 55 Z", d.Segments[0].Path)
	assert.Equal(t, "Bills 50.0%", d.Segments[1].Label)
	assert.True(t, strings.HasPrefix(d.Segments[1].Path, "M 110 210 "))
}

func TestBuildLargeArcFlag(t *testing.T) {
	d := Build([]core.Slice{
		{Category: core.Food, Amount: 750, Share: 75},
		{Category: core.Other, Amount: 250, Share: 25},
	})
	assert.Contains(t, d.Segments[0].Path, " 0 1 1 ")
	assert.Contains(t, d.Segments[1].Path, " 0 0 1 ")
}

func TestNum(t *testing.T) {
	assert.Equal(t, "110", num(110))
	assert.Equal(t, "12.5", num(12.5))
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "1.23", num(1.234))
}
