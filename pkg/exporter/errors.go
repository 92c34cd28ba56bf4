package exporter

import (
	"errors"
	"fmt"
)

// Kind classifies export failures.
type Kind string

const (
	// KindSourceUnavailable means the record source could not be opened.
	// Nothing was written.
	KindSourceUnavailable Kind = "source_unavailable"

	// KindFileCreation means the output file could not be created.
	// Parent directories may already exist.
	KindFileCreation Kind = "file_creation_failed"

	// KindStreamIO means reading a record or writing the file failed
	// mid-export. The partially written file is kept.
	KindStreamIO Kind = "stream_io_failure"
)

// Sentinels for errors.Is checks against an *Error.
var (
	ErrSourceUnavailable = errors.New("record source unavailable")
	ErrFileCreation      = errors.New("output file creation failed")
	ErrStreamIO          = errors.New("export stream failed")
)

// Error describes a failed or partial export.
type Error struct {
	Kind    Kind
	Path    string // resolved output path, if known
	Records int    // records written before the failure
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.sentinel().Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s [path=%s]", msg, e.Path)
	}
	if e.Kind == KindStreamIO {
		msg = fmt.Sprintf("%s after %d record(s)", msg, e.Records)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindSourceUnavailable:
		return ErrSourceUnavailable
	case KindFileCreation:
		return ErrFileCreation
	default:
		return ErrStreamIO
	}
}

// KindOf returns the failure kind of err, or "" if err is not an export error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
