package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticLevels(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticSystem(DiagnosticInfo)
	d.SetOutput(&buf)

	d.Info("visible %d", 1)
	d.Verbose("hidden")
	d.Warn("careful")
	d.Success("done")

	out := buf.String()
	assert.Contains(t, out, "visible 1")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "done")
	assert.NotContains(t, out, "hidden")
}

func TestStructuredOutputHelpers(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnosticSystem(DiagnosticInfo)
	d.SetOutput(&buf)

	d.Section("Run abc")
	d.PhaseItem("mod-a: 1 interface(s)")
	d.Subsection("Hints")
	d.Indent()
	d.List("first")
	d.Unindent()
	d.List("second")

	out := buf.String()
	assert.Contains(t, out, "Run abc\n")
	assert.Contains(t, out, "✓ mod-a: 1 interface(s)")
	assert.Contains(t, out, "Hints:")
	assert.Contains(t, out, "  - first")
	assert.Contains(t, out, "\n- second")
}

func TestQuietDiagnosticsOnlyShowErrors(t *testing.T) {
	var buf bytes.Buffer
	d := NewQuietDiagnostics()
	d.SetOutput(&buf)

	d.Info("chatter")
	d.Error("broken")

	out := buf.String()
	assert.NotContains(t, out, "chatter")
	assert.Contains(t, out, "broken")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
