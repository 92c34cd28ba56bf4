package dropbox

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultDeviceDir is where the platform keeps DropBox entries on a device.
const DefaultDeviceDir = "/data/system/dropbox"

// dirEntry is an indexed DropBox file.
type dirEntry struct {
	tag        string
	timeMillis int64
	kind       Kind
	gzipped    bool
	path       string
}

// DirSource reads a DropBox directory in the platform's on-disk layout:
// one file per entry named <escaped tag>@<millis>.<ext>, where ext is
// txt, txt.gz, dat, dat.gz or lost.
type DirSource struct {
	dir     string
	entries []dirEntry
}

// OpenDir indexes the DropBox files in dir. Files that don't follow the
// naming scheme are ignored.
func OpenDir(dir string) (*DirSource, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dropbox dir %s: %w", dir, err)
	}

	s := &DirSource{dir: dir}
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		e, ok := parseEntryName(de.Name())
		if !ok {
			continue
		}
		e.path = filepath.Join(dir, de.Name())
		s.entries = append(s.entries, e)
	}

	// Names break timestamp ties so the result is deterministic.
	sort.Slice(s.entries, func(i, j int) bool {
		if s.entries[i].timeMillis != s.entries[j].timeMillis {
			return s.entries[i].timeMillis < s.entries[j].timeMillis
		}
		return s.entries[i].path < s.entries[j].path
	})

	return s, nil
}

// Dir returns the indexed directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// Len returns the number of indexed entries.
func (s *DirSource) Len() int {
	return len(s.entries)
}

// NextRecord returns the first entry strictly after the cursor.
func (s *DirSource) NextRecord(ctx context.Context, after int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].timeMillis > after
	})
	if i >= len(s.entries) {
		return nil, io.EOF
	}

	return &fileRecord{entry: s.entries[i]}, nil
}

// Close releases resources. The index is kept in memory only.
func (s *DirSource) Close() error {
	return nil
}

// parseEntryName splits a DropBox file name into its parts.
func parseEntryName(name string) (dirEntry, bool) {
	at := strings.LastIndex(name, "@")
	if at <= 0 {
		return dirEntry{}, false
	}

	rest := name[at+1:]
	dot := strings.Index(rest, ".")
	if dot <= 0 {
		return dirEntry{}, false
	}

	millis, err := strconv.ParseInt(rest[:dot], 10, 64)
	if err != nil || millis < 0 {
		return dirEntry{}, false
	}

	e := dirEntry{timeMillis: millis}
	switch rest[dot+1:] {
	case "txt":
		e.kind = KindText
	case "txt.gz":
		e.kind, e.gzipped = KindText, true
	case "dat":
		e.kind = KindData
	case "dat.gz":
		e.kind, e.gzipped = KindData, true
	case "lost":
		e.kind = KindLost
	default:
		return dirEntry{}, false
	}

	tag, err := url.PathUnescape(name[:at])
	if err != nil {
		return dirEntry{}, false
	}
	e.tag = tag

	return e, true
}

// IsEntryName reports whether name follows the DropBox file naming scheme.
func IsEntryName(name string) bool {
	_, ok := parseEntryName(name)
	return ok
}

// EntryName returns the on-disk file name for an entry.
func EntryName(e Entry, gzipped bool) string {
	var ext string
	switch e.Kind {
	case KindText:
		ext = ".txt"
	case KindLost:
		return url.PathEscape(e.Tag) + "@" + strconv.FormatInt(e.TimeMillis, 10) + ".lost"
	default:
		ext = ".dat"
	}
	if gzipped {
		ext += ".gz"
	}
	return url.PathEscape(e.Tag) + "@" + strconv.FormatInt(e.TimeMillis, 10) + ext
}

type fileRecord struct {
	entry dirEntry
}

func (r *fileRecord) Tag() string       { return r.entry.tag }
func (r *fileRecord) TimeMillis() int64 { return r.entry.timeMillis }

// Text reads the payload from disk, decompressing when needed.
func (r *fileRecord) Text(maxBytes int) (string, error) {
	if r.entry.kind != KindText || maxBytes <= 0 {
		return "", nil
	}
	data, err := r.read(int64(maxBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Entry reads the whole payload. Compressed files are stored inflated.
func (r *fileRecord) Entry() (Entry, error) {
	e := Entry{Tag: r.entry.tag, TimeMillis: r.entry.timeMillis, Kind: r.entry.kind}
	if r.entry.kind == KindLost {
		return e, nil
	}
	body, err := r.read(-1)
	if err != nil {
		return Entry{}, err
	}
	e.Body = body
	return e, nil
}

// read returns up to limit payload bytes; a negative limit reads everything.
func (r *fileRecord) read(limit int64) ([]byte, error) {
	f, err := os.Open(r.entry.path) // #nosec G304 -- paths come from the indexed dropbox dir
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", r.entry.path, err)
	}
	defer f.Close()

	var rd io.Reader = f
	if r.entry.gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", r.entry.path, err)
		}
		defer gz.Close()
		rd = gz
	}
	if limit >= 0 {
		rd = io.LimitReader(rd, limit)
	}

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.entry.path, err)
	}
	return data, nil
}

func (r *fileRecord) Close() error {
	return nil
}
