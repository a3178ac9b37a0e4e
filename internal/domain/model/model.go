// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// ClassFlag names a class a glider model can belong to, e.g. "15" or "Standard".
type ClassFlag string

// Well-known class flags used by the default catalog.
const (
	ClassOpen     ClassFlag = "Open"
	Class18m      ClassFlag = "18"
	Class15m      ClassFlag = "15"
	ClassStandard ClassFlag = "Standard"
	ClassClub     ClassFlag = "Club"
	ClassDouble   ClassFlag = "Double"
)

// ClassSet is a read-only set of class memberships.
// The zero value is an empty set.
type ClassSet struct {
	flags map[ClassFlag]struct{}
}

// NewClassSet builds a set from flags. Empty flags are ignored.
func NewClassSet(flags ...ClassFlag) ClassSet {
	s := ClassSet{flags: make(map[ClassFlag]struct{}, len(flags))}
	for _, f := range flags {
		if f == "" {
			continue
		}
		s.flags[f] = struct{}{}
	}
	return s
}

// Has reports whether the set contains flag.
func (s ClassSet) Has(flag ClassFlag) bool {
	_, ok := s.flags[flag]
	return ok
}

// Len returns the number of memberships.
func (s ClassSet) Len() int { return len(s.flags) }

// Flags returns the memberships sorted by name.
func (s ClassSet) Flags() []ClassFlag {
	out := make([]ClassFlag, 0, len(s.flags))
	for f := range s.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array of flags.
func (s ClassSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// Model is one row of the input roster.
type Model struct {
	ID        int      `json:"id,omitempty"` // source row id, 0 when the source has none
	Name      string   `json:"name"`
	Handicap  float64  `json:"handicap"`
	Classes   ClassSet `json:"classes"`
	Highlight bool     `json:"highlight"` // precomputed audit delta
}

// WithHandicap returns a copy of m carrying handicap h.
func (m Model) WithHandicap(h float64) Model {
	m.Handicap = h
	return m
}

// Validate checks the invariants the engine relies on.
func (m Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidModel)
	}
	if math.IsNaN(m.Handicap) || math.IsInf(m.Handicap, 0) || m.Handicap <= 0 {
		return fmt.Errorf("%w: %q has handicap %v", ErrInvalidModel, m.Name, m.Handicap)
	}
	return nil
}

// ValidateAll validates every model and reports the offending position.
func ValidateAll(models []Model) error {
	for i, m := range models {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model %d: %w", i, err)
		}
	}
	return nil
}
