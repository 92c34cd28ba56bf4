// Package exporter drains a DropBox record source into a flat text file.
//
// Each record becomes one block:
//
//	<tag>:\r\n<text>\r\n\r\n
//
// Blocks appear in ascending timestamp order with no header or footer.
//
// Export is synchronous and blocks on file and source I/O; callers that
// must stay responsive run it on their own goroutine. An Exporter holds
// only configuration and may be shared freely.
package exporter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
	"github.com/ccollicutt/dropboxlog/pkg/logging"
	"github.com/ccollicutt/dropboxlog/pkg/metrics"
)

// Defaults.
const (
	DefaultFilename             = "dropbox.log"
	DefaultMaxBytes             = 800 * 1024
	DefaultFileMode os.FileMode = 0644
)

// Opener acquires the record source for one export.
type Opener func(ctx context.Context) (dropbox.Source, error)

// Result describes a written export file. Records and Bytes count only
// blocks that were handed to the file, so a partial Result never
// overstates what the file holds.
type Result struct {
	ID        string        `json:"id"`
	Path      string        `json:"path"`
	Records   int           `json:"records"`
	Bytes     int64         `json:"bytes"`
	Partial   bool          `json:"partial"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Exporter writes DropBox records to a file.
type Exporter struct {
	open     Opener
	logger   logrus.FieldLogger
	metrics  *metrics.Collector
	fileMode os.FileMode
	after    int64
	now      func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithMetrics records every run on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Exporter) { e.metrics = c }
}

// WithFileMode sets the permissions applied to the output file.
func WithFileMode(mode os.FileMode) Option {
	return func(e *Exporter) { e.fileMode = mode }
}

// WithAfter sets the cursor lower bound: only records strictly after
// this timestamp (ms) are exported.
func WithAfter(ms int64) Option {
	return func(e *Exporter) { e.after = ms }
}

// New creates an Exporter reading from the source open returns.
func New(open Opener, opts ...Option) *Exporter {
	e := &Exporter{
		open:     open,
		logger:   logging.Discard(),
		fileMode: DefaultFileMode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes every record after the configured cursor to pathname and
// returns the written file.
//
// pathname may name an existing directory, in which case DefaultFilename is
// used inside it; otherwise it names the file, which is replaced. Record
// text is truncated to maxBytes.
//
// If the source can't be opened or the file can't be created, Export
// returns a nil Result and an *Error. If reading or writing fails
// mid-stream, the loop stops and Export returns the partial Result
// (Partial set) together with an *Error of KindStreamIO.
func (e *Exporter) Export(ctx context.Context, pathname string, maxBytes int) (*Result, error) {
	started := e.now()
	id := uuid.NewString()
	log := e.logger.WithFields(logrus.Fields{"export_id": id, "target": pathname})

	res, err := e.run(ctx, log, pathname, maxBytes)
	elapsed := e.now().Sub(started)

	outcome := metrics.ResultSuccess
	switch {
	case res == nil:
		outcome = metrics.ResultFailed
		log.WithError(err).Error("export failed")
		e.metrics.ObserveExport(outcome, 0, 0, elapsed, started)
		return nil, err
	case err != nil:
		outcome = metrics.ResultPartial
		res.Partial = true
		log.WithError(err).WithField("records", res.Records).Warn("export stopped early, keeping partial file")
	default:
		log.WithFields(logrus.Fields{
			"path":    res.Path,
			"records": res.Records,
			"bytes":   res.Bytes,
		}).Info("export finished")
	}

	res.ID = id
	res.StartedAt = started
	res.Duration = elapsed
	e.metrics.ObserveExport(outcome, res.Records, res.Bytes, elapsed, started)

	return res, err
}

func (e *Exporter) run(ctx context.Context, log logrus.FieldLogger, pathname string, maxBytes int) (*Result, error) {
	if e.open == nil {
		return nil, &Error{Kind: KindSourceUnavailable, Cause: errors.New("no record source configured")}
	}
	src, err := e.open(ctx)
	if err != nil {
		return nil, &Error{Kind: KindSourceUnavailable, Cause: err}
	}
	if src == nil {
		return nil, &Error{Kind: KindSourceUnavailable, Cause: errors.New("opener returned no source")}
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing record source")
		}
	}()

	path, err := ResolvePath(pathname)
	if err != nil {
		return nil, &Error{Kind: KindFileCreation, Path: pathname, Cause: err}
	}

	f, err := e.create(log, path)
	if err != nil {
		return nil, &Error{Kind: KindFileCreation, Path: path, Cause: err}
	}

	res := &Result{Path: path}
	if err := e.drain(ctx, log, src, f, maxBytes, res); err != nil {
		return res, &Error{Kind: KindStreamIO, Path: path, Records: res.Records, Cause: err}
	}
	return res, nil
}

// ResolvePath returns the absolute output file for pathname. An existing
// directory gets DefaultFilename appended.
func ResolvePath(pathname string) (string, error) {
	if pathname == "" {
		return "", errors.New("output path is empty")
	}
	abs, err := filepath.Abs(pathname)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", pathname, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, DefaultFilename)
	}
	return abs, nil
}

// create replaces any file at path with a new empty one.
func (e *Exporter) create(log logrus.FieldLogger, path string) (*os.File, error) {
	if info, err := os.Lstat(path); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing previous export: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, e.fileMode) // #nosec G304 -- user-provided output path is expected
	if err != nil {
		return nil, err
	}

	// The creation mode is filtered by the umask; apply it explicitly.
	if err := f.Chmod(e.fileMode); err != nil {
		log.WithError(err).WithField("mode", fmt.Sprintf("%#o", e.fileMode)).Warn("setting export file mode")
	}

	return f, nil
}

// drain copies records into f until the source is exhausted. Each block is
// flushed before it is counted. f is flushed and closed on every path.
func (e *Exporter) drain(ctx context.Context, log logrus.FieldLogger, src dropbox.Source, f io.WriteCloser, maxBytes int, res *Result) (err error) {
	w := bufio.NewWriter(f)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flushing %s: %w", res.Path, ferr)
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", res.Path, cerr)
		}
	}()

	cursor := e.after
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := src.NextRecord(ctx, cursor)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading record after %d: %w", cursor, err)
		}

		if rec.TimeMillis() <= cursor {
			_ = rec.Close()
			return fmt.Errorf("source returned %s@%d, not after cursor %d", rec.Tag(), rec.TimeMillis(), cursor)
		}

		n, werr := writeRecord(w, rec, maxBytes)
		cursor = rec.TimeMillis()
		if cerr := rec.Close(); cerr != nil {
			log.WithError(cerr).WithField("tag", rec.Tag()).Debug("releasing record")
		}
		if werr != nil {
			return werr
		}
		if ferr := w.Flush(); ferr != nil {
			return fmt.Errorf("writing %s@%d: %w", rec.Tag(), cursor, ferr)
		}

		res.Records++
		res.Bytes += int64(n)
		log.WithFields(logrus.Fields{"tag": rec.Tag(), "time_millis": cursor}).Debug("record written")
	}
}
