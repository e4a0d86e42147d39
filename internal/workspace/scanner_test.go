package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congen/internal/errors"
	"congen/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// makeModule creates a minimal module package directory under root.
func makeModule(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, models.ModPrefix+name)
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/"+models.ModPrefix+name+"\n\ngo 1.25\n")
	writeFile(t, filepath.Join(dir, name+".go"), "package "+name+"\n")
	return dir
}

func TestScanFindsModulePackages(t *testing.T) {
	root := t.TempDir()
	makeModule(t, root, "beta")
	makeModule(t, root, "alpha")

	mods, err := NewScanner().Scan(models.Config{Root: root})
	require.NoError(t, err)
	require.Len(t, mods, 2)

	// Alphabetical regardless of discovery order.
	assert.Equal(t, "alpha", mods[0].Name)
	assert.Equal(t, "beta", mods[1].Name)
	assert.Len(t, mods[0].SourceFiles, 1)
	assert.False(t, mods[0].HasConsumer)
}

func TestScanIgnoresNonModuleDirectories(t *testing.T) {
	root := t.TempDir()
	makeModule(t, root, "alpha")

	// No go.mod: not a module package.
	writeFile(t, filepath.Join(root, "mod-empty", "empty.go"), "package empty\n")
	// Consumer directories are outputs.
	writeFile(t, filepath.Join(root, "con-alpha", "go.mod"), "module example.com/con-alpha\n")
	// Hidden and well-known junk directories are skipped entirely.
	writeFile(t, filepath.Join(root, ".cache", "mod-hidden", "go.mod"), "module hidden\n")
	writeFile(t, filepath.Join(root, "vendor", "mod-vendored", "go.mod"), "module vendored\n")

	mods, err := NewScanner().Scan(models.Config{Root: root})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "alpha", mods[0].Name)
	assert.True(t, mods[0].HasConsumer)
}

func TestScanSkipsTestFiles(t *testing.T) {
	root := t.TempDir()
	dir := makeModule(t, root, "alpha")
	writeFile(t, filepath.Join(dir, "alpha_test.go"), "package alpha\n")

	mods, err := NewScanner().Scan(models.Config{Root: root})
	require.NoError(t, err)
	require.Len(t, mods[0].SourceFiles, 1)
	assert.Equal(t, filepath.Join(dir, "alpha.go"), mods[0].SourceFiles[0])
}

func TestScanEmptyWorkspace(t *testing.T) {
	_, err := NewScanner().Scan(models.Config{Root: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, errors.NoPackagesFoundErrorCode, errors.CodeOf(err))
}

func TestScanFilter(t *testing.T) {
	root := t.TempDir()
	makeModule(t, root, "alpha")
	makeModule(t, root, "beta")

	mods, err := NewScanner().Scan(models.Config{Root: root, Filter: "beta"})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "beta", mods[0].Name)

	_, err = NewScanner().Scan(models.Config{Root: root, Filter: "gamma"})
	require.Error(t, err)
	assert.Equal(t, errors.PackageNotFoundErrorCode, errors.CodeOf(err))
}

func TestScanRejectsAmbiguousShortNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "mod-dup", "go.mod"), "module example.com/mod-dup\n")
	writeFile(t, filepath.Join(root, "b", "mod-dup", "go.mod"), "module example.com/mod-dup2\n")

	_, err := NewScanner().Scan(models.Config{Root: root})
	require.Error(t, err)
	assert.Equal(t, errors.AmbiguousPackageErrorCode, errors.CodeOf(err))
}

func TestRecordFileDoesNotAgeTheModule(t *testing.T) {
	root := t.TempDir()
	dir := makeModule(t, root, "alpha")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "go.mod"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "alpha.go"), past, past))
	require.NoError(t, os.Chtimes(dir, past, past))

	// A freshly written record must not move the module's mtime forward.
	writeFile(t, filepath.Join(dir, models.RecordFileName), "{}\n")
	require.NoError(t, os.Chtimes(dir, past, past))

	mods, err := NewScanner().Scan(models.Config{Root: root})
	require.NoError(t, err)
	assert.WithinDuration(t, past, mods[0].ModTime, time.Second)
}

func TestShouldRegenerate(t *testing.T) {
	now := time.Now()
	mod := models.ModulePackage{
		Name:        "alpha",
		HasConsumer: true,
		ModTime:     now.Add(-time.Minute),
		ConTime:     now,
	}

	assert.Equal(t, models.RegenNone, ShouldRegenerate(models.Config{}, mod))
	assert.Equal(t, models.RegenForce, ShouldRegenerate(models.Config{Force: true}, mod))

	mod.HasConsumer = false
	assert.Equal(t, models.RegenMissing, ShouldRegenerate(models.Config{}, mod))

	mod.HasConsumer = true
	mod.ModTime = now.Add(time.Minute)
	assert.Equal(t, models.RegenModified, ShouldRegenerate(models.Config{}, mod))

	// Equal timestamps count as up to date: only strictly newer triggers.
	mod.ModTime = mod.ConTime
	assert.Equal(t, models.RegenNone, ShouldRegenerate(models.Config{}, mod))
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.work"), "go 1.25\n")
	nested := filepath.Join(root, models.ModPrefix+"alpha", "internal")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, ambient := FindRoot(nested)
	assert.Equal(t, root, found)
	assert.Equal(t, "alpha", ambient)

	found, ambient = FindRoot(root)
	assert.Equal(t, root, found)
	assert.Empty(t, ambient)
}

func TestFindRootFallsBackToGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "services")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	found, _ := FindRoot(sub)
	assert.Equal(t, root, found)
}

func TestFindRootWithoutMarkers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	found, _ := FindRoot(dir)
	assert.Equal(t, dir, found)
}
