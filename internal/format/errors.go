package format

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatNotFound is matched by every *FormatNotFoundError.
	ErrFormatNotFound = errors.New("format not found")
	// ErrNotImplemented is matched by every *NotImplementedError.
	ErrNotImplemented = errors.New("not implemented")
)

// Role tells whether a format was looked up as conversion source or target.
type Role string

const (
	Source Role = "source"
	Target Role = "target"
)

// FormatNotFoundError reports an unknown file extension or format identifier.
type FormatNotFoundError struct {
	Role Role
	Key  string // extension for sources, identifier for targets
}

func (e *FormatNotFoundError) Error() string {
	if e.Role == Source {
		return fmt.Sprintf("unknown source format for file extension %q", e.Key)
	}
	return fmt.Sprintf("unknown target format %q", e.Key)
}

func (e *FormatNotFoundError) Is(target error) bool { return target == ErrFormatNotFound }

// Capability names one half of a format's support.
type Capability string

const (
	Reading Capability = "reading"
	Writing Capability = "writing"
)

// NotImplementedError reports a registered format that lacks a reader or writer.
type NotImplementedError struct {
	Format     string
	Capability Capability
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s not implemented for format %q", e.Capability, e.Format)
}

func (e *NotImplementedError) Is(target error) bool { return target == ErrNotImplemented }

// ParseError reports malformed source content.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
