package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableFile is returned when an upload cannot be parsed as a table.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrConfigMismatch is returned when a filter names a column the dataset
	// does not have (or one that is not filterable).
	ErrConfigMismatch = errors.New("filter configuration mismatch")
)

// UnreadableFileError carries the upload name and detected format.
type UnreadableFileError struct {
	Name   string
	Format Format
	Err    error
}

func (e *UnreadableFileError) Error() string {
	format := string(e.Format)
	if format == "" {
		format = "unknown"
	}
	if e.Err == nil {
		return fmt.Sprintf("cannot read %q (format %s)", e.Name, format)
	}
	return fmt.Sprintf("cannot read %q (format %s): %v", e.Name, format, e.Err)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }

func (e *UnreadableFileError) Is(target error) bool { return target == ErrUnreadableFile }

// ConfigMismatchError names the offending filter column.
type ConfigMismatchError struct {
	Column string
	Reason string
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("filter column %q: %s", e.Column, e.Reason)
}

func (e *ConfigMismatchError) Is(target error) bool { return target == ErrConfigMismatch }

func unreadable(name string, format Format, err error) error {
	return &UnreadableFileError{Name: name, Format: format, Err: err}
}
