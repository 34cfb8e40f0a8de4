// Package discovery enumerates plugin units under a base directory.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/manifest"
	"github.com/selimozcann/mainurlhunter/internal/model"
)

// ErrBaseDirNotFound is returned when the base directory does not exist.
var ErrBaseDirNotFound = errors.New("base directory not found")

// DeclarationExt is the extension of a unit's declaration file.
const DeclarationExt = ".kt"

// ListUnits returns the sorted names of the subdirectories of baseDir,
// without hidden directories and without names matching any pattern in
// excluded. Patterns use doublestar syntax; a plain name matches itself.
func ListUnits(baseDir string, excluded []string) ([]string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrBaseDirNotFound, err)
		}
		return nil, &model.OpError{Op: "discovery.list_units", Kind: model.KindDiscovery, Path: baseDir, Err: err}
	}

	var names []string
	for _, ent := range entries {
		if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		if isExcluded(ent.Name(), excluded) {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isExcluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// FindDeclaration walks unitDir depth-first and returns the path of the
// first file named <unit>.kt, or "" when there is none. Unreadable entries
// below unitDir are passed over; only an unreadable unitDir is an error.
func FindDeclaration(unitDir, unit string) (string, error) {
	want := unit + DeclarationExt
	var found string
	err := filepath.WalkDir(unitDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == unitDir {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == want {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", &model.OpError{Op: "discovery.find_declaration", Kind: model.KindDiscovery, Unit: unit, Path: unitDir, Err: err}
	}
	return found, nil
}

// Discover builds the units to process under baseDir. A missing base
// directory is logged and yields no units. Units without a declaration file
// are logged at debug level and dropped.
func Discover(baseDir string, excluded []string, log logger.Logger) []model.Unit {
	names, err := ListUnits(baseDir, excluded)
	if err != nil {
		log.Error("Unit discovery failed", logger.String("base_dir", baseDir), logger.Error(err))
		return nil
	}

	units := make([]model.Unit, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(baseDir, name)
		decl, err := FindDeclaration(dir, name)
		if err != nil {
			log.Warn("Declaration search failed", logger.String("unit", name), logger.Error(err))
			continue
		}
		if decl == "" {
			log.Debug("Declaration file not found", logger.String("unit", name), logger.String("want", filepath.Join(name, name+DeclarationExt)))
			continue
		}
		units = append(units, model.Unit{
			Name:            name,
			Dir:             dir,
			DeclarationPath: decl,
			ManifestPath:    filepath.Join(dir, manifest.FileName),
		})
	}
	log.Debug("Units discovered", logger.Int("count", len(units)), logger.Int("directories", len(names)))
	return units
}
