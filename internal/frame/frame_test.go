package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BlankCellsBecomeMissing(t *testing.T) {
	f := New([]string{"a", "b", "c"}, [][]string{
		{"1", "", "  "},
		{"x"},
		{"1", "2", "3", "4"},
	})

	require.Equal(t, 3, f.Len())
	assert.Equal(t, Str("1"), f.Get(0, "a"))
	assert.Equal(t, Missing, f.Get(0, "b"))
	assert.Equal(t, Missing, f.Get(0, "c"))
	assert.Equal(t, Missing, f.Get(1, "c"), "short rows are padded")
	assert.Len(t, f.Rows[2], 3, "long rows are truncated")
	assert.Equal(t, Missing, f.Get(0, "nope"))
}

func TestDropEmptyRows(t *testing.T) {
	f := New([]string{"a", "b"}, [][]string{
		{"", ""},
		{"1", ""},
		{" ", "\t"},
		{"", "2"},
	})

	n := f.DropEmptyRows()
	assert.Equal(t, 2, n)
	require.Equal(t, 2, f.Len())
	assert.Equal(t, "1", f.Get(0, "a").Value)
	assert.Equal(t, "2", f.Get(1, "b").Value)
	assert.Equal(t, 0, f.SourceRow(0))
	assert.Equal(t, 2, f.SourceRow(1))
}

func TestSourceRowSurvivesRepeatedFilters(t *testing.T) {
	f := New([]string{"k"}, [][]string{{""}, {"a"}, {"b"}, {""}, {"a"}})
	f.DropEmptyRows()
	f.Filter(func(i int) bool { return f.Get(i, "k").Value == "a" })

	require.Equal(t, 2, f.Len())
	assert.Equal(t, []int{1, 4}, f.Source)
	assert.Equal(t, 4, f.SourceRow(1))
}

func TestSourceRowWithoutPositions(t *testing.T) {
	f := &Frame{Columns: []string{"k"}, Rows: [][]Cell{{Str("x")}, {Str("y")}}}
	assert.Equal(t, 1, f.SourceRow(1))
}

func TestDropColumns(t *testing.T) {
	f := New([]string{"a", "b", "c"}, [][]string{{"1", "2", "3"}})
	f.DropColumns("b", "unknown")

	assert.Equal(t, []string{"a", "c"}, f.Columns)
	assert.False(t, f.Has("b"))
	assert.Equal(t, "3", f.Get(0, "c").Value)
}

func TestMissingColumnsAndAllMissing(t *testing.T) {
	f := New([]string{"a", "b"}, [][]string{{"1", ""}, {"2", ""}})

	assert.Equal(t, []string{"c"}, f.MissingColumns("a", "c"))
	assert.True(t, f.AllMissing("b"))
	assert.False(t, f.AllMissing("a"))
	assert.True(t, f.AllMissing("zzz"))
}

func TestFilterAndColumn(t *testing.T) {
	f := New([]string{"k"}, [][]string{{"keep"}, {"drop"}, {"keep"}})
	f.Filter(func(i int) bool { return f.Get(i, "k").Value == "keep" })

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []Cell{Str("keep"), Str("keep")}, f.Column("k"))
	assert.Nil(t, f.Column("missing"))
}

func TestEmpty(t *testing.T) {
	f := Empty()
	assert.True(t, f.IsEmpty())
	assert.Equal(t, 0, f.DropEmptyRows())
}

func TestCellDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15 13:45:10", time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},
		{"2024-01-15T13:45:10", time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},
		{"2024-01-15T13:45:10Z", time.Date(2024, 1, 15, 13, 45, 10, 0, time.UTC)},
		{"2024/01/15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024.01.15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024. 1. 5", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Str(tt.in).Date()
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}

	assert.Nil(t, Missing.Date())
	assert.Nil(t, Str("not a date").Date())
	assert.Nil(t, Str("2024-13-45").Date())
}

func TestCellFloat(t *testing.T) {
	v := Str("1.25").Float()
	require.NotNil(t, v)
	assert.InDelta(t, 1.25, *v, 1e-12)

	v = Str("1,234.5").Float()
	require.NotNil(t, v)
	assert.InDelta(t, 1234.5, *v, 1e-12)

	assert.Nil(t, Missing.Float())
	assert.Nil(t, Str("abc").Float())
	assert.Nil(t, Str("NaN").Float())
	assert.Nil(t, Str("Inf").Float())
}

func TestCellInt(t *testing.T) {
	v := Str("3.0").Int()
	require.NotNil(t, v)
	assert.Equal(t, int64(3), *v)

	assert.Nil(t, Str("3.5").Int())
	assert.Nil(t, Str("x").Int())
	assert.Equal(t, 0, Missing.IntOr(0))
	assert.Equal(t, 12, Str("12").IntOr(0))
	assert.Equal(t, "", Missing.String())
	assert.Equal(t, "v", Str("v").String())
}
