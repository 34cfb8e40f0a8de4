package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/manifest"
	"github.com/selimozcann/mainurlhunter/internal/model"
)

func mkdirs(t *testing.T, base string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(base, d), 0o755))
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListUnits(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "Zeta", "Alpha", ".git", "gradle", "TestPlugin", "Mid")
	touch(t, filepath.Join(base, "README.md"))

	got, err := ListUnits(base, []string{"gradle", "Test*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, got)
}

func TestListUnitsMissingBase(t *testing.T) {
	_, err := ListUnits(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBaseDirNotFound))
	assert.True(t, model.IsKind(err, model.KindDiscovery))
}

func TestFindDeclaration(t *testing.T) {
	base := t.TempDir()
	want := filepath.Join(base, "Dizibox", "src", "main", "kotlin", "com", "x", "Dizibox.kt")
	touch(t, want)
	touch(t, filepath.Join(base, "Dizibox", "src", "main", "kotlin", "com", "x", "DiziboxProvider.kt"))

	got, err := FindDeclaration(filepath.Join(base, "Dizibox"), "Dizibox")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	none, err := FindDeclaration(filepath.Join(base, "Dizibox"), "Other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindDeclarationSkipsUnreadableDirs(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	unit := filepath.Join(t.TempDir(), "Dizibox")
	locked := filepath.Join(unit, "aaa")
	mkdirs(t, unit, "aaa")
	touch(t, filepath.Join(locked, "notes.txt"))
	want := filepath.Join(unit, "zzz", "Dizibox.kt")
	touch(t, want)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got, err := FindDeclaration(unit, "Dizibox")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	units := Discover(filepath.Dir(unit), nil, logger.NewNop())
	require.Len(t, units, 1)
	assert.Equal(t, want, units[0].DeclarationPath)
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "A", "src", "A.kt"))
	touch(t, filepath.Join(base, "B", "src", "Other.kt"))
	touch(t, filepath.Join(base, "C", "C.kt"))
	mkdirs(t, base, "gradle")

	units := Discover(base, []string{"gradle"}, logger.NewNop())
	require.Len(t, units, 2)
	assert.Equal(t, model.Unit{
		Name:            "A",
		Dir:             filepath.Join(base, "A"),
		DeclarationPath: filepath.Join(base, "A", "src", "A.kt"),
		ManifestPath:    filepath.Join(base, "A", manifest.FileName),
	}, units[0])
	assert.Equal(t, "C", units[1].Name)

	assert.Empty(t, Discover(filepath.Join(base, "missing"), nil, logger.NewNop()))
}
