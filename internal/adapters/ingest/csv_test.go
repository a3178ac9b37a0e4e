package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/gliderindex/internal/adapters/ingest"
	"github.com/okian/gliderindex/internal/domain/changes"
	"github.com/okian/gliderindex/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexLine builds an 18 column line of the index list export.
func indexLine(id, name, class, previous, current string) string {
	cols := make([]string, 18)
	cols[0] = id
	cols[2] = name
	cols[4] = class
	cols[16] = previous
	cols[17] = current
	return strings.Join(cols, ",")
}

func indexCSV(lines ...string) string {
	header := indexLine("ID", "Name", "Class", "Old", "New")
	return strings.Join(append([]string{header}, lines...), "\n") + "\n"
}

func TestReadIndexList(t *testing.T) {
	ctx := context.Background()

	t.Run("parses rows and computes highlights", func(t *testing.T) {
		src := indexCSV(
			indexLine("12", "ASW 20", "15", "110", "110"),
			indexLine("13", "LS8", "Standard", "107", "108"),
			indexLine("600", "Ventus 3", "18", "124", "124"),
			indexLine("14", "Ka 8", "Club", "84.5", "84.5"),
		)

		models, err := ingest.ReadIndexList(ctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
		require.NoError(t, err)
		require.Len(t, models, 4)

		assert.Equal(t, 12, models[0].ID)
		assert.Equal(t, "ASW 20", models[0].Name)
		assert.Equal(t, 110.0, models[0].Handicap)
		assert.True(t, models[0].Classes.Has(model.Class15m))
		assert.False(t, models[0].Highlight)

		assert.True(t, models[1].Highlight, "changed handicap")
		assert.True(t, models[2].Highlight, "new row past the boundary")
		assert.Equal(t, 84.5, models[3].Handicap)
		assert.False(t, models[3].Highlight)
	})

	t.Run("disabled policy never highlights", func(t *testing.T) {
		src := indexCSV(indexLine("900", "LS8", "Standard", "107", "108"))

		models, err := ingest.ReadIndexList(ctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.Policy{})
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.False(t, models[0].Highlight)
	})

	t.Run("accepts a zero previous handicap for new types", func(t *testing.T) {
		src := indexCSV(
			indexLine("600", "JS3", "18", "0", "121"),
			indexLine("20", "Ka 6", "Club", "0", "96"),
		)

		models, err := ingest.ReadIndexList(ctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
		require.NoError(t, err)
		require.Len(t, models, 2)
		assert.Equal(t, 121.0, models[0].Handicap)
		assert.True(t, models[0].Highlight, "new row past the boundary")
		assert.True(t, models[1].Highlight, "handicap differs from the previous edition")
	})

	t.Run("header only yields no models", func(t *testing.T) {
		models, err := ingest.ReadIndexList(ctx, strings.NewReader(indexCSV()), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
		require.NoError(t, err)
		assert.Empty(t, models)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		cases := map[string]string{
			"empty source":      "",
			"bad id":            indexCSV(indexLine("x", "LS8", "Standard", "107", "108")),
			"bad handicap":      indexCSV(indexLine("1", "LS8", "Standard", "107", "abc")),
			"zero handicap":     indexCSV(indexLine("1", "LS8", "Standard", "107", "0")),
			"negative previous": indexCSV(indexLine("1", "LS8", "Standard", "-1", "108")),
			"missing name":      indexCSV(indexLine("1", "", "Standard", "107", "108")),
			"missing class":     indexCSV(indexLine("1", "LS8", "", "107", "108")),
			"too few columns":   indexCSV("1,,LS8"),
		}
		for name, src := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ingest.ReadIndexList(ctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
				require.Error(t, err)
				assert.True(t, errors.Is(err, ingest.ErrMalformedInput), err.Error())
			})
		}
	})

	t.Run("reports the line number", func(t *testing.T) {
		src := indexCSV(
			indexLine("1", "LS8", "Standard", "107", "108"),
			indexLine("2", "Discus", "Standard", "107", "oops"),
		)
		_, err := ingest.ReadIndexList(ctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("rejects an invalid layout", func(t *testing.T) {
		layout := ingest.DefaultIndexLayout()
		layout.NameColumn = -1
		_, err := ingest.ReadIndexList(ctx, strings.NewReader(indexCSV()), layout, changes.DefaultPolicy())
		require.ErrorIs(t, err, ingest.ErrMalformedInput)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		src := indexCSV(indexLine("1", "LS8", "Standard", "107", "108"))
		_, err := ingest.ReadIndexList(cctx, strings.NewReader(src), ingest.DefaultIndexLayout(), changes.DefaultPolicy())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadCompetitionList(t *testing.T) {
	ctx := context.Background()
	header := "Model,Handicap,18,15,Std,Club,Double\n"

	t.Run("parses flags from non-empty cells", func(t *testing.T) {
		src := header +
			"LS8,108,,x,x,,\n" +
			"Discus,108,,x,,,\n" +
			"Arcus,116.5,x,,,,x\n"

		models, err := ingest.ReadCompetitionList(ctx, strings.NewReader(src), ingest.DefaultCompetitionColumns())
		require.NoError(t, err)
		require.Len(t, models, 3)

		assert.Equal(t, "LS8", models[0].Name)
		assert.True(t, models[0].Classes.Has(model.Class15m))
		assert.True(t, models[0].Classes.Has(model.ClassStandard))
		assert.False(t, models[0].Classes.Has(model.ClassClub))

		assert.Equal(t, []model.ClassFlag{model.Class15m}, models[1].Classes.Flags())

		assert.Equal(t, 116.5, models[2].Handicap)
		assert.Equal(t, []model.ClassFlag{model.Class18m, model.ClassDouble}, models[2].Classes.Flags())
	})

	t.Run("accepts reordered columns and a byte order mark", func(t *testing.T) {
		src := "\ufeffDouble,Club,Std,15,18,Handicap,Model\n" +
			",x,,,,84,Ka 8\n"

		models, err := ingest.ReadCompetitionList(ctx, strings.NewReader(src), ingest.DefaultCompetitionColumns())
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, "Ka 8", models[0].Name)
		assert.Equal(t, 84.0, models[0].Handicap)
		assert.Equal(t, []model.ClassFlag{model.ClassClub}, models[0].Classes.Flags())
	})

	t.Run("rejects a missing column", func(t *testing.T) {
		src := "Model,Handicap,18,15,Std,Club\nLS8,108,,x,x,\n"
		_, err := ingest.ReadCompetitionList(ctx, strings.NewReader(src), ingest.DefaultCompetitionColumns())
		require.ErrorIs(t, err, ingest.ErrMalformedInput)
		assert.Contains(t, err.Error(), `"Double"`)
	})

	t.Run("rejects malformed rows", func(t *testing.T) {
		for name, row := range map[string]string{
			"bad handicap":   "LS8,fast,,x,x,,\n",
			"empty name":     ",108,,x,x,,\n",
			"short row":      "LS8,108\n",
			"negative value": "LS8,-3,,x,x,,\n",
		} {
			t.Run(name, func(t *testing.T) {
				_, err := ingest.ReadCompetitionList(ctx, strings.NewReader(header+row), ingest.DefaultCompetitionColumns())
				require.ErrorIs(t, err, ingest.ErrMalformedInput)
			})
		}
	})
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()

	t.Run("opens an existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "competition.csv")
		require.NoError(t, os.WriteFile(path, []byte("Model,Handicap\n"), 0o600))

		rc, err := ingest.OpenFile(ctx, path)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	})

	t.Run("wraps a missing file", func(t *testing.T) {
		_, err := ingest.OpenFile(ctx, filepath.Join(t.TempDir(), "missing.csv"))
		require.ErrorIs(t, err, ingest.ErrOpenInput)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
