package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	var err error
	if s.Status == StatusFailed {
		_, err = fmt.Fprintf(w, "dropboxlog: failed: %s\n", s.Error)
	} else {
		_, err = fmt.Fprintf(w, "dropboxlog: %s, %d records, %d bytes -> %s\n",
			s.Status, s.Records, s.Bytes, s.Path)
	}
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	s := report.Summary
	var b strings.Builder

	// Header
	b.WriteString("=== DropBox Export ===\n\n")

	fmt.Fprintf(&b, "Status:  %s\n", strings.ToUpper(string(s.Status)))
	if s.Path != "" {
		fmt.Fprintf(&b, "File:    %s\n", s.Path)
	}
	if s.Status != StatusFailed {
		fmt.Fprintf(&b, "Records: %d\n", s.Records)
		fmt.Fprintf(&b, "Bytes:   %d\n", s.Bytes)
	}
	if s.Error != "" {
		if s.ErrorKind != "" {
			fmt.Fprintf(&b, "Error:   [%s] %s\n", s.ErrorKind, s.Error)
		} else {
			fmt.Fprintf(&b, "Error:   %s\n", s.Error)
		}
	}

	if f.opts.Verbose {
		b.WriteString("---\n")
		m := report.Metadata
		if m.ID != "" {
			fmt.Fprintf(&b, "Run ID: %s\n", m.ID)
		}
		if m.ConfigFile != "" {
			fmt.Fprintf(&b, "Config: %s\n", m.ConfigFile)
		}
		for _, src := range m.Sources {
			fmt.Fprintf(&b, "Source: %s\n", src)
		}
		fmt.Fprintf(&b, "Duration: %s\n", m.Duration.Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
