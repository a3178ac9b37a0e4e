package ingest

import "github.com/okian/gliderindex/internal/domain/model"

// IndexLayout maps the positional columns of the index list source.
type IndexLayout struct {
	IDColumn               int `koanf:"id_column" validate:"gte=0"`
	NameColumn             int `koanf:"name_column" validate:"gte=0"`
	ClassColumn            int `koanf:"class_column" validate:"gte=0"`
	PreviousHandicapColumn int `koanf:"previous_handicap_column" validate:"gte=0"`
	HandicapColumn         int `koanf:"handicap_column" validate:"gte=0"`
}

// DefaultIndexLayout is the column layout of the federation's glider list export.
func DefaultIndexLayout() IndexLayout {
	return IndexLayout{
		IDColumn:               0,
		NameColumn:             2,
		ClassColumn:            4,
		PreviousHandicapColumn: 16,
		HandicapColumn:         17,
	}
}

func (l IndexLayout) maxColumn() int {
	return max(l.IDColumn, l.NameColumn, l.ClassColumn, l.PreviousHandicapColumn, l.HandicapColumn)
}

// CompetitionColumns maps header names of the competition source.
// A flag column is true when its cell is non-empty.
type CompetitionColumns struct {
	Name     string                     `koanf:"name" validate:"required"`
	Handicap string                     `koanf:"handicap" validate:"required"`
	Flags    map[string]model.ClassFlag `koanf:"flags" validate:"dive,keys,required,endkeys,required"`
}

// DefaultCompetitionColumns is the header layout of competition.csv.
func DefaultCompetitionColumns() CompetitionColumns {
	return CompetitionColumns{
		Name:     "Model",
		Handicap: "Handicap",
		Flags: map[string]model.ClassFlag{
			"18":     model.Class18m,
			"15":     model.Class15m,
			"Std":    model.ClassStandard,
			"Club":   model.ClassClub,
			"Double": model.ClassDouble,
		},
	}
}
