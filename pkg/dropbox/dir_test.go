package dropbox

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEntry stores e in dir using the platform file naming.
func writeEntry(t *testing.T, dir string, e Entry, gzipped bool) string {
	t.Helper()
	body := e.Body
	if gzipped {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(body)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		body = buf.Bytes()
	}
	p := filepath.Join(dir, EntryName(e, gzipped))
	require.NoError(t, os.WriteFile(p, body, 0644))
	return p
}

func drain(t *testing.T, src Source, maxBytes int) []Entry {
	t.Helper()
	var got []Entry
	var cursor int64
	for {
		rec, err := src.NextRecord(context.Background(), cursor)
		if errors.Is(err, io.EOF) {
			return got
		}
		require.NoError(t, err)
		text, err := rec.Text(maxBytes)
		require.NoError(t, err)
		got = append(got, Entry{Tag: rec.Tag(), TimeMillis: rec.TimeMillis(), Body: []byte(text)})
		cursor = rec.TimeMillis()
		require.NoError(t, rec.Close())
	}
}

func TestParseEntryName(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		tag     string
		millis  int64
		kind    Kind
		gzipped bool
	}{
		{"system_server_crash@1700000000000.txt", true, "system_server_crash", 1700000000000, KindText, false},
		{"SYSTEM_TOMBSTONE@1700000000001.txt.gz", true, "SYSTEM_TOMBSTONE", 1700000000001, KindText, true},
		{"netstats@12.dat", true, "netstats", 12, KindData, false},
		{"netstats@13.dat.gz", true, "netstats", 13, KindData, true},
		{"data_app_anr@14.lost", true, "data_app_anr", 14, KindLost, false},
		{"my%20tag@15.txt", true, "my tag", 15, KindText, false},
		{"a@b@16.txt", true, "a@b", 16, KindText, false},
		{"noat.txt", false, "", 0, "", false},
		{"@17.txt", false, "", 0, "", false},
		{"tag@abc.txt", false, "", 0, "", false},
		{"tag@18.log", false, "", 0, "", false},
		{"tag@19", false, "", 0, "", false},
		{"bad%zzescape@20.txt", false, "", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := parseEntryName(tt.name)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ok, IsEntryName(tt.name))
			if !ok {
				return
			}
			assert.Equal(t, tt.tag, e.tag)
			assert.Equal(t, tt.millis, e.timeMillis)
			assert.Equal(t, tt.kind, e.kind)
			assert.Equal(t, tt.gzipped, e.gzipped)
		})
	}
}

func TestEntryName_RoundTrip(t *testing.T) {
	e := Entry{Tag: "my tag/x", TimeMillis: 42, Kind: KindText}
	parsed, ok := parseEntryName(EntryName(e, true))
	require.True(t, ok)
	assert.Equal(t, "my tag/x", parsed.tag)
	assert.Equal(t, int64(42), parsed.timeMillis)
	assert.True(t, parsed.gzipped)
}

func TestOpenDir_Missing(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestDirSource_OrderAndKinds(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, Entry{Tag: "B", TimeMillis: 200, Kind: KindText, Body: []byte("world")}, true)
	writeEntry(t, dir, Entry{Tag: "A", TimeMillis: 100, Kind: KindText, Body: []byte("hello")}, false)
	writeEntry(t, dir, Entry{Tag: "bin", TimeMillis: 150, Kind: KindData, Body: []byte{0, 1, 2}}, false)
	writeEntry(t, dir, Entry{Tag: "gone", TimeMillis: 250, Kind: KindLost}, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub@1.txt"), 0755))

	src, err := OpenDir(dir)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 4, src.Len())

	got := drain(t, src, 1024)
	require.Len(t, got, 4)
	assert.Equal(t, "A", got[0].Tag)
	assert.Equal(t, "hello", string(got[0].Body))
	assert.Equal(t, "bin", got[1].Tag)
	assert.Empty(t, got[1].Body)
	assert.Equal(t, "B", got[2].Tag)
	assert.Equal(t, "world", string(got[2].Body))
	assert.Equal(t, "gone", got[3].Tag)
	assert.Empty(t, got[3].Body)
}

func TestDirSource_Truncation(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, Entry{Tag: "A", TimeMillis: 1, Kind: KindText, Body: []byte("0123456789")}, false)
	writeEntry(t, dir, Entry{Tag: "B", TimeMillis: 2, Kind: KindText, Body: []byte("0123456789")}, true)

	src, err := OpenDir(dir)
	require.NoError(t, err)

	for _, k := range []int{0, 1, 4, 10, 20} {
		for _, e := range drain(t, src, k) {
			assert.LessOrEqual(t, len(e.Body), k, "maxBytes=%d", k)
			assert.Equal(t, "0123456789"[:min(k, 10)], string(e.Body))
		}
	}
}

func TestDirSource_DuplicateTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, Entry{Tag: "first", TimeMillis: 5, Kind: KindText, Body: []byte("1")}, false)
	writeEntry(t, dir, Entry{Tag: "second", TimeMillis: 5, Kind: KindText, Body: []byte("2")}, false)

	src, err := OpenDir(dir)
	require.NoError(t, err)

	got := drain(t, src, 16)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Tag)
}

func TestDirSource_Entry(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, Entry{Tag: "z", TimeMillis: 9, Kind: KindData, Body: []byte("payload")}, true)

	src, err := OpenDir(dir)
	require.NoError(t, err)

	rec, err := src.NextRecord(context.Background(), 0)
	require.NoError(t, err)
	e, err := ReadEntry(rec, 1)
	require.NoError(t, err)
	assert.Equal(t, KindData, e.Kind)
	assert.Equal(t, "payload", string(e.Body))
}

func TestDirSource_CanceledContext(t *testing.T) {
	src, err := OpenDir(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.NextRecord(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
