// Package output provides formatting of export reports.
package output

import (
	"time"

	"github.com/ccollicutt/dropboxlog/pkg/exporter"
)

// Status is the outcome of an export run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Report is the complete export output.
type Report struct {
	// Summary describes what was written.
	Summary Summary `json:"summary"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary describes the outcome of one export.
type Summary struct {
	Status Status `json:"status"`

	// Path is the absolute path of the export file. Empty when nothing was written.
	Path string `json:"path,omitempty"`

	Records int   `json:"records"`
	Bytes   int64 `json:"bytes"`

	// ErrorKind classifies the failure (source_unavailable, file_creation_failed,
	// stream_io_failure).
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Metadata provides context about the export run.
type Metadata struct {
	// ID identifies the run in logs.
	ID string `json:"id,omitempty"`

	// ConfigFile is the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources describes where the records came from.
	Sources []string `json:"sources,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewReport creates a Report from an export result and error.
// res may be nil when the export failed before writing.
func NewReport(res *exporter.Result, err error, configFile string, sources []string) *Report {
	report := &Report{
		Summary: Summary{Status: StatusSuccess},
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    sources,
		},
	}

	if res != nil {
		report.Summary.Path = res.Path
		report.Summary.Records = res.Records
		report.Summary.Bytes = res.Bytes
		report.Metadata.ID = res.ID
		report.Metadata.StartedAt = res.StartedAt
		report.Metadata.Duration = res.Duration
	}

	if err != nil {
		report.Summary.Error = err.Error()
		report.Summary.ErrorKind = string(exporter.KindOf(err))
		if res != nil {
			report.Summary.Status = StatusPartial
		} else {
			report.Summary.Status = StatusFailed
		}
	}

	return report
}

// Failed returns true if no export file was produced.
func (r *Report) Failed() bool {
	return r.Summary.Status == StatusFailed
}

// HasProblems returns true if the export was partial or failed.
func (r *Report) HasProblems() bool {
	return r.Summary.Status != StatusSuccess
}
