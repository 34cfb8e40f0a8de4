// Package declaration reads and rewrites the mainUrl assignment in a plugin
// source file.
package declaration

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/selimozcann/mainurlhunter/internal/fsutil"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/model"
)

var (
	// ErrNoDeclaration is returned when a file has no mainUrl assignment.
	ErrNoDeclaration = errors.New("no mainUrl declaration found")
	// ErrEmptyArgument is returned when Mutate gets an empty old or new value.
	ErrEmptyArgument = errors.New("empty url argument")
	// ErrInvalidEncoding is returned when a declaration file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("declaration file is not valid UTF-8")
)

// Groups: 1 = prefix through the opening quote, 2 = value, 3 = closing quote.
var assignmentRe = regexp.MustCompile(`(?i)(override\s+var\s+mainUrl\s*=\s*["'])([^"']+)(["'])`)

// Extract returns the first mainUrl value assigned in the file at path.
func Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &model.OpError{Op: "declaration.extract", Kind: model.KindExtraction, Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return "", &model.OpError{Op: "declaration.extract", Kind: model.KindExtraction, Path: path, Err: ErrInvalidEncoding}
	}
	value, ok := ExtractFrom(string(data))
	if !ok {
		return "", &model.OpError{Op: "declaration.extract", Kind: model.KindExtraction, Path: path, Err: ErrNoDeclaration}
	}
	return value, nil
}

// ExtractFrom returns the first mainUrl value assigned in content.
func ExtractFrom(content string) (string, bool) {
	m := assignmentRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// Rewrite computes the new content for a declaration. It first replaces the
// value of every mainUrl assignment, keeping the surrounding syntax and quote
// style. When no assignment matches it falls back to replacing oldURL
// verbatim anywhere in content. The returned count is the number of
// replacements made by whichever strategy ran.
func Rewrite(content, oldURL, newDomain string) (string, model.Strategy, int) {
	matches := assignmentRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) > 0 {
		var b strings.Builder
		b.Grow(len(content))
		last := 0
		for _, m := range matches {
			// m[4]:m[5] spans the value group.
			b.WriteString(content[last:m[4]])
			b.WriteString(newDomain)
			last = m[5]
		}
		b.WriteString(content[last:])
		return b.String(), model.StrategyStructural, len(matches)
	}

	n := strings.Count(content, oldURL)
	return strings.ReplaceAll(content, oldURL, newDomain), model.StrategyFallback, n
}

// MutationResult describes what Mutate did to a declaration file.
type MutationResult struct {
	Strategy     model.Strategy
	Replacements int
	// Changed is true when the new content differs from the old. In dry-run
	// mode it reports what would have been written.
	Changed bool
	// Written is true only when the file on disk was replaced.
	Written bool
}

// Mutator rewrites declaration files.
type Mutator struct {
	log    logger.Logger
	dryRun bool
}

// NewMutator returns a Mutator. With dryRun set it never writes.
func NewMutator(log logger.Logger, dryRun bool) *Mutator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Mutator{log: log, dryRun: dryRun}
}

// Mutate replaces the mainUrl value in path with newDomain. Content that
// would not change is never written, so running it twice is a no-op the
// second time. Writes are atomic.
func (m *Mutator) Mutate(path, oldURL, newDomain string) (MutationResult, error) {
	res := MutationResult{Strategy: model.StrategyNone}
	if oldURL == "" || newDomain == "" {
		m.log.Warn("Empty url argument, declaration left untouched",
			logger.String("file", path),
			logger.String("old_url", oldURL),
			logger.String("new_domain", newDomain))
		return res, &model.OpError{Op: "declaration.mutate", Kind: model.KindMutation, Path: path, Err: ErrEmptyArgument}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.log.Error("Declaration could not be read", logger.String("file", path), logger.Error(err))
		return res, &model.OpError{Op: "declaration.mutate", Kind: model.KindMutation, Path: path, Err: err}
	}
	content := string(data)

	updated, strategy, n := Rewrite(content, oldURL, newDomain)
	res.Strategy = strategy
	res.Replacements = n
	if strategy == model.StrategyFallback {
		m.log.Warn("mainUrl assignment not found, falling back to verbatim replace",
			logger.String("file", path),
			logger.String("old_url", oldURL),
			logger.Int("replacements", n))
	}

	if updated == content {
		m.log.Info("No change", logger.String("file", path))
		return res, nil
	}
	res.Changed = true

	if m.dryRun {
		m.log.Info("Dry run, declaration not written",
			logger.String("file", path),
			logger.String("strategy", string(strategy)))
		return res, nil
	}

	if err := fsutil.WriteFileAtomic(path, []byte(updated)); err != nil {
		m.log.Error("Declaration update failed",
			logger.String("file", path),
			logger.String("old_url", oldURL),
			logger.String("new_domain", newDomain),
			logger.Error(err))
		res.Changed = false
		return res, &model.OpError{Op: "declaration.mutate", Kind: model.KindMutation, Path: path, Err: err}
	}
	res.Written = true
	return res, nil
}
