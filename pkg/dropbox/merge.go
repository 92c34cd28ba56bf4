package dropbox

import (
	"context"
	"errors"
	"io"
)

// MergedSource presents several sources as a single timeline. Each
// NextRecord call returns the oldest record strictly after the cursor
// across all sources.
type MergedSource struct {
	sources []Source
	peeks   []Record
	done    []bool
	closed  bool
}

// NewMergedSource creates a Source that merges the given sources by timestamp.
func NewMergedSource(sources ...Source) *MergedSource {
	return &MergedSource{
		sources: sources,
		peeks:   make([]Record, len(sources)),
		done:    make([]bool, len(sources)),
	}
}

// NextRecord returns the oldest record after the cursor across all sources.
// Returns io.EOF when all sources are exhausted.
func (m *MergedSource) NextRecord(ctx context.Context, after int64) (Record, error) {
	best := -1

	for i, src := range m.sources {
		if m.done[i] {
			continue
		}

		// A peeked record at or before the cursor is stale.
		if m.peeks[i] != nil && m.peeks[i].TimeMillis() <= after {
			_ = m.peeks[i].Close()
			m.peeks[i] = nil
		}

		if m.peeks[i] == nil {
			rec, err := src.NextRecord(ctx, after)
			if errors.Is(err, io.EOF) {
				m.done[i] = true
				continue
			}
			if err != nil {
				return nil, err
			}
			m.peeks[i] = rec
		}

		if best < 0 || m.peeks[i].TimeMillis() < m.peeks[best].TimeMillis() {
			best = i
		}
	}

	if best < 0 {
		return nil, io.EOF
	}

	rec := m.peeks[best]
	m.peeks[best] = nil
	return rec, nil
}

// Close releases pending records and all sources.
func (m *MergedSource) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for i, rec := range m.peeks {
		if rec != nil {
			if err := rec.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			m.peeks[i] = nil
		}
	}
	for _, src := range m.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
