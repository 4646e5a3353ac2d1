// internal/pathlib/library_test.go
package pathlib

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// straight builds a path of n equal steps along the x axis.
func straight(n, step int) Path {
	p := make(Path, n)
	for i := range p {
		p[i] = geometry.Displacement{DX: step}
	}
	return p
}

func distances(l *Library) []int {
	var out []int
	for _, e := range l.Entries() {
		out = append(out, e.Summary.Distance)
	}
	return out
}

func TestSummarize(t *testing.T) {
	p := Path{{DX: 1, DY: -1}, {DX: 7, DY: 19}, {DX: 3, DY: 3}, {DX: -3, DY: 2}, {DX: 5, DY: 6}}
	s := Summarize(p)
	assert.Equal(t, 32, s.Distance)
	assert.InDelta(t, math.Atan2(29, 13), s.Angle, 1e-12)
}

func TestSummary_OrderingIgnoresAngle(t *testing.T) {
	a := Summary{Distance: 10, Angle: 0.1}
	b := Summary{Distance: 10, Angle: 3.0}
	c := Summary{Distance: 11, Angle: 0.1}

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
	assert.Equal(t, -1, a.Compare(c))
	assert.Equal(t, 1, c.Compare(b))
}

func TestLibrary_InsertKeepsOrder(t *testing.T) {
	lib := New()
	for _, n := range []int{5, 1, 9, 3, 7} {
		_, stored := lib.Insert(straight(n, 2))
		require.True(t, stored)
	}
	assert.Equal(t, []int{2, 6, 10, 14, 18}, distances(lib))
	assert.NoError(t, lib.Validate())
}

func TestLibrary_InsertShortestWins(t *testing.T) {
	lib := New()

	// Every path below has distance 20.
	long := straight(4, 5)
	short := Path{{DX: 10, DY: 0}, {DX: 10, DY: 0}}
	sameLen := Path{{DX: 0, DY: 10}, {DX: 0, DY: 10}}
	longer := Path{{DX: 5}, {DX: 5}, {DX: 5}, {DX: 4}, {DX: 1}}

	_, stored := lib.Insert(long)
	require.True(t, stored)

	_, stored = lib.Insert(short)
	assert.True(t, stored, "fewer displacements should replace the stored path")

	_, stored = lib.Insert(sameLen)
	assert.False(t, stored, "equal length keeps the existing path")

	_, stored = lib.Insert(longer)
	assert.False(t, stored)

	require.Equal(t, 1, lib.Len())
	e, ok := lib.Get(20)
	require.True(t, ok)
	if diff := cmp.Diff(short, e.Path); diff != "" {
		t.Errorf("stored path mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.0, e.Summary.Angle, 1e-12)
}

func TestLibrary_InsertCopiesPath(t *testing.T) {
	lib := New()
	p := straight(2, 3)
	lib.Insert(p)
	p[0].DX = 100

	e, ok := lib.Get(6)
	require.True(t, ok)
	assert.Equal(t, 3, e.Path[0].DX)
}

func TestLibrary_InsertEmptyPath(t *testing.T) {
	lib := New()
	_, stored := lib.Insert(Path{})
	assert.False(t, stored)
	assert.Equal(t, 0, lib.Len())
}

func TestLibrary_RangeQueries(t *testing.T) {
	lib := New()
	for _, n := range []int{1, 2, 4, 8} {
		lib.Insert(straight(n, 10)) // distances 10, 20, 40, 80
	}

	t.Run("first picks lowest distance in window", func(t *testing.T) {
		e, ok := lib.First(15, 45)
		require.True(t, ok)
		assert.Equal(t, 20, e.Summary.Distance)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		e, ok := lib.First(40, 40)
		require.True(t, ok)
		assert.Equal(t, 40, e.Summary.Distance)

		got := lib.Range(10, 40)
		require.Len(t, got, 3)
		assert.Equal(t, 10, got[0].Summary.Distance)
		assert.Equal(t, 40, got[2].Summary.Distance)
	})

	t.Run("empty window", func(t *testing.T) {
		_, ok := lib.First(41, 79)
		assert.False(t, ok)
		assert.Empty(t, lib.Range(41, 79))
		_, ok = lib.First(50, 10)
		assert.False(t, ok)
	})

	t.Run("span", func(t *testing.T) {
		lo, ok := lib.MinDistance()
		require.True(t, ok)
		hi, _ := lib.MaxDistance()
		assert.Equal(t, 10, lo)
		assert.Equal(t, 80, hi)

		_, ok = New().MinDistance()
		assert.False(t, ok)
		_, ok = New().MaxDistance()
		assert.False(t, ok)
	})
}

func TestLibrary_WithoutStationary(t *testing.T) {
	lib := New()
	lib.Insert(Path{{DX: 3}, {DX: -3}}) // returns to the start
	lib.Insert(straight(3, 4))

	_, ok := lib.Get(0)
	require.True(t, ok)

	moving := lib.WithoutStationary()
	_, ok = moving.Get(0)
	assert.False(t, ok)
	assert.Equal(t, 1, moving.Len())
	assert.Equal(t, 2, lib.Len(), "original must not be modified")
}

func TestLibrary_Validate(t *testing.T) {
	good := Entry{Summary: Summarize(straight(2, 5)), Path: straight(2, 5)}

	tests := []struct {
		name    string
		entries []Entry
		wantMsg string
	}{
		{
			name:    "negative distance",
			entries: []Entry{{Summary: Summary{Distance: -1}, Path: straight(1, 1)}},
			wantMsg: "negative distance",
		},
		{
			name:    "empty path",
			entries: []Entry{{Summary: Summary{Distance: 3}, Path: Path{}}},
			wantMsg: "empty path",
		},
		{
			name:    "duplicate distance",
			entries: []Entry{good, good},
			wantMsg: "is not greater than",
		},
		{
			name:    "summary mismatch",
			entries: []Entry{{Summary: Summary{Distance: 11}, Path: straight(2, 5)}},
			wantMsg: "does not match",
		},
		{
			name:    "angle out of range",
			entries: []Entry{{Summary: Summary{Distance: 10, Angle: 7}, Path: straight(2, 5)}},
			wantMsg: "outside",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fromEntries(tt.entries).Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLibrary))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	assert.NoError(t, fromEntries([]Entry{good}).Validate())
	assert.NoError(t, New().Validate())
}

func TestFromEntries(t *testing.T) {
	src := New()
	src.Insert(straight(2, 5))
	src.Insert(straight(3, 5))

	lib, err := FromEntries(src.Entries())
	require.NoError(t, err)
	assert.Equal(t, []int{10, 15}, distances(lib))

	reversed := src.Entries()
	reversed[0], reversed[1] = reversed[1], reversed[0]
	_, err = FromEntries(reversed)
	assert.True(t, errors.Is(err, ErrInvalidLibrary))
}
