// Package competition derives per-class eligibility lists with handicaps
// rescaled against a class reference value.
package competition

import (
	"fmt"

	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/samber/lo"
)

// Spec configures one competition class.
type Spec struct {
	Title     string          `json:"title" koanf:"title" validate:"required"`
	Reference float64         `json:"reference" koanf:"reference" validate:"gt=0"`
	Cutoff    float64         `json:"cutoff" koanf:"cutoff" validate:"gte=0"`
	Flag      model.ClassFlag `json:"flag" koanf:"flag" validate:"required"`
}

// DefaultSpecs are the two classes of the printed competition list.
func DefaultSpecs() []Spec {
	return []Spec{
		{Title: "15m Klasse", Reference: 114, Cutoff: 106, Flag: model.Class15m},
		{Title: "Standardklasse", Reference: 110, Cutoff: 102, Flag: model.ClassStandard},
	}
}

// Validate rejects specs that would produce meaningless scores.
// Classify does not call it; it is meant for configuration loading.
func (s Spec) Validate() error {
	switch {
	case s.Title == "":
		return fmt.Errorf("%w: empty title", ErrInvalidSpec)
	case s.Flag == "":
		return fmt.Errorf("%w: %q has no class flag", ErrInvalidSpec, s.Title)
	case !(s.Reference > 0):
		return fmt.Errorf("%w: %q has reference %v", ErrInvalidSpec, s.Title, s.Reference)
	}
	return nil
}

// Class is the eligibility list of one competition class.
// Entries carry rescaled handicaps; Cutoff and Reference are raw values.
type Class struct {
	Title     string          `json:"title"`
	Flag      model.ClassFlag `json:"flag"`
	Reference float64         `json:"reference"`
	Cutoff    float64         `json:"cutoff"`
	Entries   []model.Model   `json:"entries"`
}

// Classify keeps members of spec.Flag whose raw handicap is at least
// spec.Cutoff and divides their handicap by spec.Reference. Input order is
// preserved and the input slice is not modified.
func Classify(models []model.Model, spec Spec) Class {
	entries := lo.FilterMap(models, func(m model.Model, _ int) (model.Model, bool) {
		if !m.Classes.Has(spec.Flag) || !(m.Handicap >= spec.Cutoff) {
			return model.Model{}, false
		}
		return m.WithHandicap(m.Handicap / spec.Reference), true
	})
	return Class{
		Title:     spec.Title,
		Flag:      spec.Flag,
		Reference: spec.Reference,
		Cutoff:    spec.Cutoff,
		Entries:   entries,
	}
}

// ClassifyAll runs Classify for every spec, in order.
func ClassifyAll(models []model.Model, specs []Spec) []Class {
	return lo.Map(specs, func(s Spec, _ int) Class {
		return Classify(models, s)
	})
}
