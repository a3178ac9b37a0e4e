// Package roster groups a glider roster into class sections and handicap
// buckets for the full index list.
//
// Output ordering is part of the contract: sections follow catalog order,
// buckets are sorted by handicap descending and entries by name ascending.
package roster

import (
	"sort"
	"strings"

	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/samber/lo"
)

// CatalogEntry declares one class section of the index list.
type CatalogEntry struct {
	Flag  model.ClassFlag `json:"flag" koanf:"flag" validate:"required"`
	Label string          `json:"label" koanf:"label" validate:"required"`
}

// Catalog is the ordered list of sections to produce.
type Catalog []CatalogEntry

// DefaultCatalog is the class order of the printed index list.
func DefaultCatalog() Catalog {
	return Catalog{
		{Flag: model.ClassOpen, Label: "Offene Klasse"},
		{Flag: model.Class18m, Label: "18m Klasse"},
		{Flag: model.Class15m, Label: "15m Klasse"},
		{Flag: model.ClassStandard, Label: "Standardklasse"},
		{Flag: model.ClassClub, Label: "Clubklasse"},
		{Flag: model.ClassDouble, Label: "Doppelsitzer"},
	}
}

// Entry is a model as shown inside a bucket.
type Entry struct {
	Name      string `json:"name"`
	Highlight bool   `json:"highlight"`
}

// Bucket holds all entries of a section sharing one raw handicap.
type Bucket struct {
	Handicap float64 `json:"handicap"`
	Entries  []Entry `json:"entries"`
}

// Section is one class of the index list.
type Section struct {
	Flag    model.ClassFlag `json:"flag"`
	Label   string          `json:"label"`
	Buckets []Bucket        `json:"buckets"`
}

// Len returns the number of entries across all buckets.
func (s Section) Len() int {
	n := 0
	for _, b := range s.Buckets {
		n += len(b.Entries)
	}
	return n
}

// Empty reports whether no model matched the section's class.
func (s Section) Empty() bool { return len(s.Buckets) == 0 }

// Group builds one section per catalog entry, in catalog order.
// The input slice is not modified.
func Group(models []model.Model, catalog Catalog) []Section {
	sections := make([]Section, 0, len(catalog))
	for _, c := range catalog {
		sections = append(sections, groupClass(models, c))
	}
	return sections
}

func groupClass(models []model.Model, c CatalogEntry) Section {
	members := lo.Filter(models, func(m model.Model, _ int) bool {
		return m.Classes.Has(c.Flag)
	})
	// Map keys are exact float64 values: no tolerance when bucketing.
	byHandicap := lo.GroupBy(members, func(m model.Model) float64 {
		return m.Handicap
	})

	keys := lo.Keys(byHandicap)
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	buckets := make([]Bucket, 0, len(keys))
	for _, h := range keys {
		buckets = append(buckets, Bucket{Handicap: h, Entries: sortedEntries(byHandicap[h])})
	}
	return Section{Flag: c.Flag, Label: c.Label, Buckets: buckets}
}

// sortedEntries orders by name (byte-wise), then non-highlighted first.
// The sort is stable so equal entries keep their input order.
func sortedEntries(models []model.Model) []Entry {
	entries := lo.Map(models, func(m model.Model, _ int) Entry {
		return Entry{Name: m.Name, Highlight: m.Highlight}
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if c := strings.Compare(entries[i].Name, entries[j].Name); c != 0 {
			return c < 0
		}
		return !entries[i].Highlight && entries[j].Highlight
	})
	return entries
}
