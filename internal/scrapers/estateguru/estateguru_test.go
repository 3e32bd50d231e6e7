package estateguru

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"estateguru-notifier/pkg/htmlutil"

	"github.com/stretchr/testify/require"
)

type warning struct {
	id     string
	params []any
}

// recordingTel is a telemetry.API that keeps every warning and broken report.
type recordingTel struct {
	mu       sync.Mutex
	warnings []warning
	broken   []string
}

func (r *recordingTel) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broken = append(r.broken, id)
}

func (r *recordingTel) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, warning{id: id, params: params})
}

func (r *recordingTel) ReportDebug(string, ...any) {}

func (r *recordingTel) ReportCount(string, int64) {}

func readTestdata(t testing.TB, name string) []byte {
	t.Helper()
	contents, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return contents
}

func parseTestdata(t testing.TB, name string) htmlutil.Document {
	t.Helper()
	doc, err := htmlutil.ParseBytes(readTestdata(t, name))
	require.NoError(t, err)
	return doc
}

func parseMarkup(t testing.TB, markup string) htmlutil.Document {
	t.Helper()
	doc, err := htmlutil.ParseString(markup)
	require.NoError(t, err)
	return doc
}
