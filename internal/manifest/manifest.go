// Package manifest bumps the integer version counter in a unit's
// build.gradle.kts.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"regexp"
	"strconv"

	"github.com/selimozcann/mainurlhunter/internal/fsutil"
	"github.com/selimozcann/mainurlhunter/internal/model"
)

// FileName is the manifest file expected in every unit directory.
const FileName = "build.gradle.kts"

var (
	// ErrManifestNotFound is returned when the manifest file does not exist.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrNoVersionLine is returned when no standalone version line exists.
	ErrNoVersionLine = errors.New("no version line found")
	// ErrVersionOverflow is returned when the version cannot be incremented.
	ErrVersionOverflow = errors.New("version is already at its maximum")
)

// Only a standalone `version = N` line counts; `versionCode = 3` or
// `version = "1.0"` do not.
var versionRe = regexp.MustCompile(`(?m)^(\s*version\s*=\s*)(\d+)(\s*)$`)

// ParseVersion returns the version declared in content.
func ParseVersion(content string) (int, error) {
	m := versionRe.FindStringSubmatch(content)
	if m == nil {
		return 0, ErrNoVersionLine
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", m[2], err)
	}
	return v, nil
}

// Bump returns content with the first version line incremented by one and
// the new version. Content without a version line is returned unchanged.
func Bump(content string) (string, int, error) {
	loc := versionRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, 0, ErrNoVersionLine
	}
	digits := content[loc[4]:loc[5]]
	old, err := strconv.Atoi(digits)
	if err != nil {
		return content, 0, fmt.Errorf("parse version %q: %w", digits, err)
	}
	if old == math.MaxInt {
		return content, 0, ErrVersionOverflow
	}
	next := old + 1
	return content[:loc[4]] + strconv.Itoa(next) + content[loc[5]:], next, nil
}

// ReadVersion reads the current version from the manifest at path.
func ReadVersion(path string) (int, error) {
	data, err := read(path, "manifest.read_version")
	if err != nil {
		return 0, err
	}
	v, err := ParseVersion(string(data))
	if err != nil {
		return 0, &model.OpError{Op: "manifest.read_version", Kind: model.KindVersion, Path: path, Err: err}
	}
	return v, nil
}

// BumpVersion increments the version line of the manifest at path, writes it
// back atomically and returns the new version.
func BumpVersion(path string) (int, error) {
	data, err := read(path, "manifest.bump_version")
	if err != nil {
		return 0, err
	}
	updated, next, err := Bump(string(data))
	if err != nil {
		return 0, &model.OpError{Op: "manifest.bump_version", Kind: model.KindVersion, Path: path, Err: err}
	}
	if err := fsutil.WriteFileAtomic(path, []byte(updated)); err != nil {
		return 0, &model.OpError{Op: "manifest.bump_version", Kind: model.KindVersion, Path: path, Err: err}
	}
	return next, nil
}

func read(path, op string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &model.OpError{Op: op, Kind: model.KindVersion, Path: path, Err: fmt.Errorf("%w: %w", ErrManifestNotFound, err)}
	}
	if err != nil {
		return nil, &model.OpError{Op: op, Kind: model.KindVersion, Path: path, Err: err}
	}
	return data, nil
}
