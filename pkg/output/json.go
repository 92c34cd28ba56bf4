package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter writes export reports as indented JSON, one document per
// report, for scripts and webhook-style consumers.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format encodes the report. Quiet mode emits only the summary.
// Paths and error text are written verbatim, without HTML escaping.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if f.opts.Quiet {
		return enc.Encode(report.Summary)
	}
	return enc.Encode(report)
}
