package dropbox

import (
	"context"
	"io"
	"sort"
	"sync/atomic"
)

// MemorySource serves records from a fixed in-memory list.
// It is mainly useful in tests and for replaying entries read elsewhere.
type MemorySource struct {
	entries  []Entry
	released atomic.Int64
	handed   atomic.Int64
	closed   bool
}

// NewMemorySource creates a source over the given entries. Entries are
// sorted by timestamp; the caller's slice is not modified.
func NewMemorySource(entries ...Entry) *MemorySource {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimeMillis < sorted[j].TimeMillis
	})
	return &MemorySource{entries: sorted}
}

// NextRecord returns the first entry strictly after the cursor.
func (s *MemorySource) NextRecord(ctx context.Context, after int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].TimeMillis > after
	})
	if i >= len(s.entries) {
		return nil, io.EOF
	}

	s.handed.Add(1)
	return &memoryRecord{entry: s.entries[i], released: &s.released}, nil
}

// Close marks the source closed.
func (s *MemorySource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySource) Closed() bool {
	return s.closed
}

// Outstanding returns the number of records handed out but not yet closed.
func (s *MemorySource) Outstanding() int64 {
	return s.handed.Load() - s.released.Load()
}

type memoryRecord struct {
	entry    Entry
	released *atomic.Int64
	closed   bool
}

func (r *memoryRecord) Tag() string       { return r.entry.Tag }
func (r *memoryRecord) TimeMillis() int64 { return r.entry.TimeMillis }

func (r *memoryRecord) Text(maxBytes int) (string, error) {
	return truncateText(r.entry.Kind, r.entry.Body, maxBytes), nil
}

func (r *memoryRecord) Entry() (Entry, error) {
	e := r.entry
	e.Body = append([]byte(nil), r.entry.Body...)
	return e, nil
}

func (r *memoryRecord) Close() error {
	if !r.closed {
		r.closed = true
		r.released.Add(1)
	}
	return nil
}
