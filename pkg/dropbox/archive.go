package dropbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tag         TEXT    NOT NULL,
	time_millis INTEGER NOT NULL UNIQUE,
	flags       INTEGER NOT NULL DEFAULT 0,
	body        BLOB
);
CREATE INDEX IF NOT EXISTS idx_entries_time ON entries(time_millis);
`

// Archive is a SQLite-backed store of DropBox entries. Entries are keyed by
// timestamp, mirroring the platform's one-entry-per-millisecond rule.
// An Archive is itself a Source, so archived entries can be exported later.
type Archive struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	insertStmt *sql.Stmt
	nextStmt   *sql.Stmt
}

// OpenArchive opens or creates the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("archive path cannot be empty")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing archive schema: %w", err)
	}

	a := &Archive{db: db, path: path}

	a.insertStmt, err = db.Prepare(
		`INSERT OR IGNORE INTO entries (tag, time_millis, flags, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	a.nextStmt, err = db.Prepare(
		`SELECT tag, time_millis, flags, body FROM entries WHERE time_millis > ? ORDER BY time_millis LIMIT 1`)
	if err != nil {
		_ = a.insertStmt.Close()
		_ = db.Close()
		return nil, fmt.Errorf("preparing query: %w", err)
	}

	return a, nil
}

// Path returns the database file path.
func (a *Archive) Path() string {
	return a.path
}

// Add stores an entry. It reports false when an entry with the same
// timestamp is already archived.
func (a *Archive) Add(ctx context.Context, e Entry) (bool, error) {
	res, err := a.insertStmt.ExecContext(ctx, e.Tag, e.TimeMillis, e.Kind.Flags(), e.Body)
	if err != nil {
		return false, fmt.Errorf("archiving %s: %w", e, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("archiving %s: %w", e, err)
	}
	return n > 0, nil
}

// Import drains src into the archive from the beginning of its timeline
// and returns the number of newly stored entries. maxBytes caps the payload
// of records that can only be read as text.
func (a *Archive) Import(ctx context.Context, src Source, maxBytes int) (int, error) {
	var cursor int64
	added := 0

	for {
		rec, err := src.NextRecord(ctx, cursor)
		if errors.Is(err, io.EOF) {
			return added, nil
		}
		if err != nil {
			return added, fmt.Errorf("reading source: %w", err)
		}

		e, err := ReadEntry(rec, maxBytes)
		cursor = rec.TimeMillis()
		_ = rec.Close()
		if err != nil {
			return added, err
		}

		ok, err := a.Add(ctx, e)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
}

// Count returns the number of archived entries.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// NextRecord returns the first archived entry strictly after the cursor.
func (a *Archive) NextRecord(ctx context.Context, after int64) (Record, error) {
	var (
		e     Entry
		flags int
	)
	err := a.nextStmt.QueryRowContext(ctx, after).Scan(&e.Tag, &e.TimeMillis, &flags, &e.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	e.Kind = KindFromFlags(flags)

	return &archiveRecord{entry: e}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	var err error
	a.closeOnce.Do(func() {
		_ = a.insertStmt.Close()
		_ = a.nextStmt.Close()
		err = a.db.Close()
	})
	return err
}

type archiveRecord struct {
	entry Entry
}

func (r *archiveRecord) Tag() string       { return r.entry.Tag }
func (r *archiveRecord) TimeMillis() int64 { return r.entry.TimeMillis }

func (r *archiveRecord) Text(maxBytes int) (string, error) {
	return truncateText(r.entry.Kind, r.entry.Body, maxBytes), nil
}

func (r *archiveRecord) Entry() (Entry, error) {
	return r.entry, nil
}

// Close drops the payload held in memory.
func (r *archiveRecord) Close() error {
	r.entry.Body = nil
	return nil
}
