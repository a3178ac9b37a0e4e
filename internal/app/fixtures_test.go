package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/gliderindex/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithOutput(os.Stderr))
	if err != nil {
		panic(err)
	}
}

// indexLine builds one row of the 18 column index list export.
func indexLine(id, name, class, previous, current string) string {
	cols := make([]string, 18)
	cols[0] = id
	cols[2] = name
	cols[4] = class
	cols[16] = previous
	cols[17] = current
	return strings.Join(cols, ",")
}

const competitionCSV = "Model,Handicap,18,15,Std,Club,Double\n" +
	"LS8,114,,x,x,,\n" +
	"Discus,108,,x,,,\n" +
	"Ka 6,96,,,x,x,\n"

// writeInputs writes both source lists into dir and returns their paths.
func writeInputs(dir string, indexRows ...string) (string, string) {
	if len(indexRows) == 0 {
		indexRows = []string{
			indexLine("12", "ASW 20", "15", "110", "110"),
			indexLine("13", "LS8", "Standard", "107", "108"),
			indexLine("600", "Ventus 3", "18", "124", "124"),
		}
	}
	header := indexLine("ID", "Name", "Class", "Old", "New")
	index := filepath.Join(dir, "index.csv")
	competition := filepath.Join(dir, "competition.csv")
	mustWrite(index, strings.Join(append([]string{header}, indexRows...), "\n")+"\n")
	mustWrite(competition, competitionCSV)
	return index, competition
}

func mustWrite(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
}

// fakeExporter records calls and writes a placeholder document.
// It also tracks how many exports of the same document overlap.
type fakeExporter struct {
	mu      sync.Mutex
	calls   []string
	err     error
	delay   time.Duration
	active  map[string]int
	overlap int
}

func (f *fakeExporter) Export(_ context.Context, htmlPath, pdfPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(htmlPath))
	if f.active == nil {
		f.active = make(map[string]int)
	}
	f.active[pdfPath]++
	f.overlap = max(f.overlap, f.active[pdfPath])
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[pdfPath]--
		f.mu.Unlock()
	}()

	time.Sleep(f.delay)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o600)
}

// MaxOverlap is the highest number of concurrent exports of one document.
func (f *fakeExporter) MaxOverlap() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlap
}

func (f *fakeExporter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
