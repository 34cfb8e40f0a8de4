package model

import (
	"errors"
	"fmt"
)

// ErrorKind groups failures by the pipeline stage that produced them.
type ErrorKind string

const (
	KindDiscovery  ErrorKind = "discovery"
	KindExtraction ErrorKind = "extraction"
	KindResolution ErrorKind = "resolution"
	KindMutation   ErrorKind = "mutation"
	KindVersion    ErrorKind = "version"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Unit string // optional
	Path string // optional
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Unit != "" {
		base += fmt.Sprintf(" (unit=%s)", e.Unit)
	}
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is an *OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
