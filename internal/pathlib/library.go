// internal/pathlib/library.go
package pathlib

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// ErrInvalidLibrary marks a library that breaks its structural invariants.
// It is a programmer or data error and is reported when the library is loaded,
// never tolerated silently at replay time.
var ErrInvalidLibrary = errors.New("invalid path library")

// angleEpsilon bounds the difference allowed between a stored summary angle and
// the angle recomputed from the path.
const angleEpsilon = 1e-6

// Path is one continuous human movement from rest to rest, stored as the
// sequence of per-sample displacements the cursor went through.
type Path []geometry.Displacement

// Net is the vector sum of every step in the path.
func (p Path) Net() geometry.Displacement {
	return geometry.NetDisplacement(p)
}

// Summary describes a path by its net displacement. Libraries order and compare
// summaries by Distance only: Angle is carried so a path can be rotated towards
// any heading, it is never part of the lookup key.
type Summary struct {
	Distance int     `json:"distance"`
	Angle    float64 `json:"angle"`
}

// Summarize computes the summary of p.
func Summarize(p Path) Summary {
	net := p.Net()
	return Summary{Distance: net.Distance(), Angle: net.Angle()}
}

// Compare orders summaries by distance.
func (s Summary) Compare(other Summary) int {
	switch {
	case s.Distance < other.Distance:
		return -1
	case s.Distance > other.Distance:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both summaries index the same library slot.
func (s Summary) Equal(other Summary) bool {
	return s.Distance == other.Distance
}

// Entry pairs a path with its summary.
type Entry struct {
	Summary Summary `json:"summary"`
	Path    Path    `json:"path"`
}

// Library is a distance ordered collection of paths holding at most one path
// per integer distance. Once built it is treated as read-only and may be shared
// between goroutines without locking.
type Library struct {
	// entries is kept sorted by Summary.Distance with no duplicates.
	entries []Entry
}

// New returns an empty library.
func New() *Library {
	return &Library{}
}

// Len returns the number of stored paths.
func (l *Library) Len() int {
	return len(l.entries)
}

// search returns the index of the first entry whose distance is >= distance.
func (l *Library) search(distance int) int {
	return sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Summary.Distance >= distance
	})
}

// Insert adds p to the library. When a path with the same distance is already
// stored, the one with fewer displacements wins; ties keep the existing path.
// It returns the summary of p and whether p was stored.
func (l *Library) Insert(p Path) (Summary, bool) {
	summary := Summarize(p)
	if len(p) == 0 {
		return summary, false
	}

	i := l.search(summary.Distance)
	if i < len(l.entries) && l.entries[i].Summary.Equal(summary) {
		if len(p) >= len(l.entries[i].Path) {
			return summary, false
		}
		l.entries[i] = Entry{Summary: summary, Path: clonePath(p)}
		return summary, true
	}

	l.entries = append(l.entries, Entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = Entry{Summary: summary, Path: clonePath(p)}
	return summary, true
}

// Get returns the entry stored for distance.
func (l *Library) Get(distance int) (Entry, bool) {
	i := l.search(distance)
	if i < len(l.entries) && l.entries[i].Summary.Distance == distance {
		return l.entries[i], true
	}
	return Entry{}, false
}

// First returns the entry with the lowest distance inside [min, max]. Picking
// the low end biases replay towards undershooting a target rather than
// overshooting it.
func (l *Library) First(min, max int) (Entry, bool) {
	if min > max {
		return Entry{}, false
	}
	i := l.search(min)
	if i < len(l.entries) && l.entries[i].Summary.Distance <= max {
		return l.entries[i], true
	}
	return Entry{}, false
}

// Range returns every entry with a distance inside [min, max], ascending.
func (l *Library) Range(min, max int) []Entry {
	if min > max {
		return nil
	}
	lo := l.search(min)
	hi := l.search(max + 1)
	out := make([]Entry, hi-lo)
	copy(out, l.entries[lo:hi])
	return out
}

// Entries returns every entry in ascending distance order.
func (l *Library) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// MinDistance and MaxDistance report the span of stored distances. Both return
// false on an empty library.
func (l *Library) MinDistance() (int, bool) {
	if len(l.entries) == 0 {
		return 0, false
	}
	return l.entries[0].Summary.Distance, true
}

func (l *Library) MaxDistance() (int, bool) {
	if len(l.entries) == 0 {
		return 0, false
	}
	return l.entries[len(l.entries)-1].Summary.Distance, true
}

// WithoutStationary returns a copy of l without the distance 0 entry. A path
// that returns to its start makes no progress, so a replay loop could pick it
// forever.
func (l *Library) WithoutStationary() *Library {
	out := &Library{entries: make([]Entry, 0, len(l.entries))}
	for _, e := range l.entries {
		if e.Summary.Distance == 0 {
			continue
		}
		out.entries = append(out.entries, e)
	}
	return out
}

// Validate checks the invariants a loaded library must satisfy before it can be
// replayed: non-negative strictly increasing distances, non-empty paths, and
// summaries that match their path.
func (l *Library) Validate() error {
	prev := -1
	for i, e := range l.entries {
		if e.Summary.Distance < 0 {
			return fmt.Errorf("%w: entry %d has negative distance %d", ErrInvalidLibrary, i, e.Summary.Distance)
		}
		if len(e.Path) == 0 {
			return fmt.Errorf("%w: entry %d (distance %d) has an empty path", ErrInvalidLibrary, i, e.Summary.Distance)
		}
		if e.Summary.Distance <= prev {
			return fmt.Errorf("%w: entry %d distance %d is not greater than %d", ErrInvalidLibrary, i, e.Summary.Distance, prev)
		}
		if math.IsNaN(e.Summary.Angle) || e.Summary.Angle < 0 || e.Summary.Angle >= 2*math.Pi {
			return fmt.Errorf("%w: entry %d has angle %v outside [0, 2π)", ErrInvalidLibrary, i, e.Summary.Angle)
		}
		want := Summarize(e.Path)
		if want.Distance != e.Summary.Distance || math.Abs(want.Angle-e.Summary.Angle) > angleEpsilon {
			return fmt.Errorf("%w: entry %d summary %+v does not match its path (%+v)", ErrInvalidLibrary, i, e.Summary, want)
		}
		prev = e.Summary.Distance
	}
	return nil
}

// FromEntries rebuilds a library from entries stored elsewhere, for example a
// database, and validates it.
func FromEntries(entries []Entry) (*Library, error) {
	lib := fromEntries(entries)
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// fromEntries builds a library from decoded entries without reordering them,
// so Validate can report ordering problems in the source.
func fromEntries(entries []Entry) *Library {
	return &Library{entries: entries}
}

func clonePath(p Path) Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}
