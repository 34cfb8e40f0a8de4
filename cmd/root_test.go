package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimozcann/mainurlhunter/internal/config"
	"github.com/selimozcann/mainurlhunter/internal/output"
)

func writeUnit(t *testing.T, base, name, mainURL string, version int) string {
	t.Helper()
	dir := filepath.Join(base, name, "src")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	decl := filepath.Join(dir, name+".kt")
	require.NoError(t, os.WriteFile(decl, []byte(fmt.Sprintf("override var mainUrl = \"%s\"\n", mainURL)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, name, "build.gradle.kts"), []byte(fmt.Sprintf("version = %d\n", version)), 0o644))
	return decl
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func servers(t *testing.T) (oldURL, newURL string) {
	t.Helper()
	newSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(newSrv.Close)
	oldSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, newSrv.URL+"/", http.StatusMovedPermanently)
	}))
	t.Cleanup(oldSrv.Close)
	return oldSrv.URL, newSrv.URL
}

func TestRootUpdatesMovedUnits(t *testing.T) {
	oldURL, newURL := servers(t)
	base := t.TempDir()
	moved := writeUnit(t, base, "Moved", oldURL+"/tr", 4)
	same := writeUnit(t, base, "Same", newURL, 2)
	writeUnit(t, base, "gradle", oldURL, 1)
	report := filepath.Join(t.TempDir(), "out", "run.jsonl")

	out, err := execute(t, "--dir", base, "--no-banner", "--jsonl", report)
	require.NoError(t, err)

	b, err := os.ReadFile(moved)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("override var mainUrl = \"%s\"\n", newURL), string(b))
	b, err = os.ReadFile(filepath.Join(base, "Moved", "build.gradle.kts"))
	require.NoError(t, err)
	assert.Equal(t, "version = 5\n", string(b))

	b, err = os.ReadFile(same)
	require.NoError(t, err)
	assert.Contains(t, string(b), newURL)

	assert.Contains(t, out, "(version -> 5)")
	assert.NotContains(t, out, "gradle", "excluded by default")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var rec output.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "Moved", rec.Unit)
	assert.NotEmpty(t, rec.RunID)
}

func TestRootDryRun(t *testing.T) {
	oldURL, _ := servers(t)
	base := t.TempDir()
	decl := writeUnit(t, base, "Moved", oldURL, 4)
	html := filepath.Join(t.TempDir(), "report.html")

	out, err := execute(t, "--dir", base, "--no-banner", "--dry-run", "--html", html)
	require.NoError(t, err)
	assert.Contains(t, out, "[dry run]")

	b, err := os.ReadFile(decl)
	require.NoError(t, err)
	assert.Contains(t, string(b), oldURL)

	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Moved")
}

func TestRootMissingBaseDirIsNotAnError(t *testing.T) {
	out, err := execute(t, "--dir", filepath.Join(t.TempDir(), "nope"), "--no-banner", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
}

func TestRootStrictFailsOnFailedUnit(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	oldURL, _ := servers(t)
	base := t.TempDir()
	decl := writeUnit(t, base, "Locked", oldURL, 1)
	dir := filepath.Dir(decl)
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err := execute(t, "--dir", base, "--no-banner", "--strict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnitsFailed))
}

func TestRootInvalidWorkers(t *testing.T) {
	_, err := execute(t, "--workers", "0", "--no-banner")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidWorkers))
}

func TestProbe(t *testing.T) {
	oldURL, newURL := servers(t)
	out, err := execute(t, "probe", oldURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Moved: "+oldURL+" -> "+newURL)
	assert.Contains(t, out, "[0] "+oldURL)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mainurlhunter version dev\n", out)
}

func TestMergeHeaders(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, mergeHeaders(cfg, []string{"referer: https://a.example/", "X-Test:1"}))
	assert.Equal(t, map[string]string{"Referer": "https://a.example/", "X-Test": "1"}, cfg.HTTP.Headers)

	assert.Error(t, mergeHeaders(cfg, []string{"novalue"}))
	assert.Error(t, mergeHeaders(cfg, []string{": x"}))
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
