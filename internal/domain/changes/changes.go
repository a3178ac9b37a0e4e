// Package changes decides which roster rows are highlighted as new or
// changed relative to a previous edition of the index list.
package changes

import "fmt"

// Policy is the change-detection rule set of one edition.
type Policy struct {
	// Edition names the list edition the rules were written for, e.g. "2023".
	Edition string `json:"edition" koanf:"edition"`
	// NewAfterID marks rows with a larger source id as new. Zero disables it.
	NewAfterID int `json:"new_after_id" koanf:"new_after_id" validate:"gte=0"`
	// CompareHandicap marks rows whose handicap differs from the previous one.
	CompareHandicap bool `json:"compare_handicap" koanf:"compare_handicap"`
}

// DefaultPolicy returns the rules of the 2023 edition.
func DefaultPolicy() Policy {
	return Policy{Edition: "2023", NewAfterID: 593, CompareHandicap: true}
}

// Enabled reports whether any rule is active.
func (p Policy) Enabled() bool { return p.NewAfterID > 0 || p.CompareHandicap }

// Validate requires an edition whenever a rule is active.
func (p Policy) Validate() error {
	if p.NewAfterID < 0 {
		return fmt.Errorf("%w: negative new_after_id %d", ErrInvalidPolicy, p.NewAfterID)
	}
	if p.Enabled() && p.Edition == "" {
		return fmt.Errorf("%w: edition required", ErrInvalidPolicy)
	}
	return nil
}

// Highlight reports whether a row is new or its handicap changed.
func (p Policy) Highlight(id int, previous, current float64) bool {
	if p.NewAfterID > 0 && id > p.NewAfterID {
		return true
	}
	return p.CompareHandicap && previous != current
}
