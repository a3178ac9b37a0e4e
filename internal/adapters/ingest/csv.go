// Package ingest reads glider rosters from their CSV exports.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/okian/gliderindex/internal/domain/changes"
	"github.com/okian/gliderindex/internal/domain/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // skip

// indexRow is one parsed line of the index list source.
type indexRow struct {
	ID       int     `validate:"gte=0"`
	Name     string  `validate:"required"`
	Class    string  `validate:"required"`
	Previous float64 `validate:"gte=0"` // 0 marks a type absent from the previous edition
	Handicap float64 `validate:"gt=0"`
}

// competitionRow is one parsed line of the competition source.
type competitionRow struct {
	Name     string  `validate:"required"`
	Handicap float64 `validate:"gt=0"`
}

// OpenFile opens a roster source for reading.
func OpenFile(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenInput, err)
	}
	return f, nil
}

// ReadIndexList parses the positional index list export. The first line is
// a header and is skipped. Highlight flags are computed with policy.
func ReadIndexList(ctx context.Context, r io.Reader, layout IndexLayout, policy changes.Policy) ([]model.Model, error) {
	if err := validate.Struct(layout); err != nil {
		return nil, fmt.Errorf("%w: index layout: %w", ErrMalformedInput, err)
	}
	cr := newReader(r)
	if _, err := cr.Read(); err != nil {
		return nil, headerError(err)
	}

	var models []model.Model
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) <= layout.maxColumn() {
			return nil, lineError(line, fmt.Errorf("expected at least %d columns, got %d", layout.maxColumn()+1, len(record)))
		}

		row, err := parseIndexRow(record, layout)
		if err != nil {
			return nil, lineError(line, err)
		}
		models = append(models, model.Model{
			ID:        row.ID,
			Name:      row.Name,
			Handicap:  row.Handicap,
			Classes:   model.NewClassSet(model.ClassFlag(row.Class)),
			Highlight: policy.Highlight(row.ID, row.Previous, row.Handicap),
		})
	}
	return models, nil
}

func parseIndexRow(record []string, layout IndexLayout) (indexRow, error) {
	id, err := strconv.Atoi(strings.TrimSpace(record[layout.IDColumn]))
	if err != nil {
		return indexRow{}, fmt.Errorf("parse id: %w", err)
	}
	previous, err := parseHandicap(record[layout.PreviousHandicapColumn])
	if err != nil {
		return indexRow{}, fmt.Errorf("parse previous handicap: %w", err)
	}
	handicap, err := parseHandicap(record[layout.HandicapColumn])
	if err != nil {
		return indexRow{}, fmt.Errorf("parse handicap: %w", err)
	}
	row := indexRow{
		ID:       id,
		Name:     strings.TrimSpace(record[layout.NameColumn]),
		Class:    strings.TrimSpace(record[layout.ClassColumn]),
		Previous: previous,
		Handicap: handicap,
	}
	if err := validate.Struct(row); err != nil {
		return indexRow{}, err
	}
	return row, nil
}

// ReadCompetitionList parses the header-based competition export.
func ReadCompetitionList(ctx context.Context, r io.Reader, cols CompetitionColumns) ([]model.Model, error) {
	if err := validate.Struct(cols); err != nil {
		return nil, fmt.Errorf("%w: competition columns: %w", ErrMalformedInput, err)
	}
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, headerError(err)
	}
	index, err := headerIndex(header, cols)
	if err != nil {
		return nil, err
	}

	var models []model.Model
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < len(header) {
			return nil, lineError(line, fmt.Errorf("expected %d columns, got %d", len(header), len(record)))
		}

		handicap, err := parseHandicap(record[index.name[cols.Handicap]])
		if err != nil {
			return nil, lineError(line, fmt.Errorf("parse handicap: %w", err))
		}
		row := competitionRow{Name: strings.TrimSpace(record[index.name[cols.Name]]), Handicap: handicap}
		if err := validate.Struct(row); err != nil {
			return nil, lineError(line, err)
		}

		flags := make([]model.ClassFlag, 0, len(index.flags))
		for _, f := range index.flags {
			if record[f.column] != "" {
				flags = append(flags, f.flag)
			}
		}
		models = append(models, model.Model{
			Name:     row.Name,
			Handicap: row.Handicap,
			Classes:  model.NewClassSet(flags...),
		})
	}
	return models, nil
}

type flagColumn struct {
	column int
	flag   model.ClassFlag
}

type columnIndex struct {
	name  map[string]int
	flags []flagColumn
}

func headerIndex(header []string, cols CompetitionColumns) (columnIndex, error) {
	idx := columnIndex{name: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx.name[h] = i
	}

	required := []string{cols.Name, cols.Handicap}
	for h := range cols.Flags {
		required = append(required, h)
	}
	for _, h := range required {
		if _, ok := idx.name[h]; !ok {
			return columnIndex{}, fmt.Errorf("%w: missing column %q", ErrMalformedInput, h)
		}
	}

	for h, flag := range cols.Flags {
		idx.flags = append(idx.flags, flagColumn{column: idx.name[h], flag: flag})
	}
	sort.Slice(idx.flags, func(i, j int) bool { return idx.flags[i].column < idx.flags[j].column })
	return idx, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

func parseHandicap(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func headerError(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: missing header", ErrMalformedInput)
	}
	return fmt.Errorf("%w: read header: %w", ErrMalformedInput, err)
}

func lineError(line int, err error) error {
	return fmt.Errorf("%w: line %d: %w", ErrMalformedInput, line, err)
}
