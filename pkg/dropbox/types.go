// Package dropbox provides access to Android DropBox diagnostic records.
//
// A Source hands out records in timestamp order through a forward cursor:
// NextRecord returns the first record strictly after the given time. Every
// record handed out must be closed by the consumer once its content is read.
package dropbox

import (
	"context"
	"fmt"
)

// Kind describes how a record's payload is stored.
type Kind string

const (
	// KindText is a plain or gzipped text payload.
	KindText Kind = "text"
	// KindData is an opaque binary payload.
	KindData Kind = "data"
	// KindLost is a record whose payload was discarded by the platform.
	KindLost Kind = "lost"
)

// Platform entry flags, as persisted by the DropBox service.
const (
	FlagEmpty   = 1
	FlagText    = 2
	FlagGzipped = 4
)

// Flags returns the platform flag bits for the kind.
func (k Kind) Flags() int {
	switch k {
	case KindText:
		return FlagText
	case KindLost:
		return FlagEmpty
	default:
		return 0
	}
}

// KindFromFlags maps platform flag bits back to a Kind.
func KindFromFlags(flags int) Kind {
	switch {
	case flags&FlagEmpty != 0:
		return KindLost
	case flags&FlagText != 0:
		return KindText
	default:
		return KindData
	}
}

// Record is a single DropBox entry handed out by a Source.
type Record interface {
	// Tag is the short identifier the entry was filed under.
	Tag() string

	// TimeMillis is the entry timestamp in milliseconds since the epoch.
	TimeMillis() int64

	// Text returns at most maxBytes bytes of the text payload.
	// Non-text and lost entries return an empty string.
	Text(maxBytes int) (string, error)

	// Close releases the resources held by the record.
	Close() error
}

// Source provides forward iteration over DropBox records.
// Implementations must be safe for sequential access (not concurrent).
type Source interface {
	// NextRecord returns the first record with a timestamp strictly
	// greater than after. Returns io.EOF when no such record exists.
	NextRecord(ctx context.Context, after int64) (Record, error)

	// Close releases any resources held by the source.
	Close() error
}

// Entry is a fully materialized record.
type Entry struct {
	Tag        string
	TimeMillis int64
	Kind       Kind
	Body       []byte
}

// String returns a short description of the entry.
func (e Entry) String() string {
	return fmt.Sprintf("%s@%d (%s, %d bytes)", e.Tag, e.TimeMillis, e.Kind, len(e.Body))
}

// truncateText applies the text contract shared by all sources.
func truncateText(kind Kind, body []byte, maxBytes int) string {
	if kind != KindText || maxBytes <= 0 {
		return ""
	}
	if len(body) > maxBytes {
		body = body[:maxBytes]
	}
	return string(body)
}

// Materializer is implemented by records that can expose their full payload.
type Materializer interface {
	Entry() (Entry, error)
}

// ReadEntry returns the full entry behind a record. Records that can't
// materialize themselves are read as text, capped at maxBytes.
func ReadEntry(rec Record, maxBytes int) (Entry, error) {
	if m, ok := rec.(Materializer); ok {
		return m.Entry()
	}
	text, err := rec.Text(maxBytes)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Tag:        rec.Tag(),
		TimeMillis: rec.TimeMillis(),
		Kind:       KindText,
		Body:       []byte(text),
	}, nil
}
