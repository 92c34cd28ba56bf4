package output

import (
	"errors"
	"testing"

	"github.com/ccollicutt/dropboxlog/pkg/exporter"
)

func TestNewReport(t *testing.T) {
	res := &exporter.Result{ID: "x", Path: "/out/dropbox.log", Records: 3, Bytes: 60}
	streamErr := &exporter.Error{Kind: exporter.KindStreamIO, Records: 3, Cause: errors.New("short write")}
	createErr := &exporter.Error{Kind: exporter.KindFileCreation, Path: "/out/dropbox.log"}

	tests := []struct {
		name        string
		res         *exporter.Result
		err         error
		wantStatus  Status
		wantKind    string
		wantFailed  bool
		wantProblem bool
	}{
		{"success", res, nil, StatusSuccess, "", false, false},
		{"partial", res, streamErr, StatusPartial, "stream_io_failure", false, true},
		{"failed", nil, createErr, StatusFailed, "file_creation_failed", true, true},
		{"plain error", nil, errors.New("bad config"), StatusFailed, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport(tt.res, tt.err, "c.yaml", []string{"s"})
			if r.Summary.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", r.Summary.Status, tt.wantStatus)
			}
			if r.Summary.ErrorKind != tt.wantKind {
				t.Errorf("ErrorKind = %q, want %q", r.Summary.ErrorKind, tt.wantKind)
			}
			if r.Failed() != tt.wantFailed {
				t.Errorf("Failed() = %v, want %v", r.Failed(), tt.wantFailed)
			}
			if r.HasProblems() != tt.wantProblem {
				t.Errorf("HasProblems() = %v, want %v", r.HasProblems(), tt.wantProblem)
			}
			if tt.res != nil && r.Summary.Path != tt.res.Path {
				t.Errorf("Path = %q, want %q", r.Summary.Path, tt.res.Path)
			}
			if r.Metadata.ConfigFile != "c.yaml" {
				t.Errorf("ConfigFile = %q", r.Metadata.ConfigFile)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "text", "json"} {
		f, err := NewFormatter(name, FormatOptions{})
		if err != nil {
			t.Errorf("NewFormatter(%q) error = %v", name, err)
			continue
		}
		if name != "" && f.Name() != name {
			t.Errorf("NewFormatter(%q).Name() = %q", name, f.Name())
		}
	}
	if _, err := NewFormatter("yaml", FormatOptions{}); err == nil {
		t.Error("NewFormatter(yaml) expected error")
	}
}
