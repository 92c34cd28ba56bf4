package exporter

import (
	"fmt"
	"io"

	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
)

// FormatBlock renders one record block.
func FormatBlock(tag, text string) string {
	return tag + ":\r\n" + text + "\r\n\r\n"
}

// writeRecord writes rec's block and returns the bytes written.
// The text never exceeds maxBytes, whatever the source returns.
func writeRecord(w io.Writer, rec dropbox.Record, maxBytes int) (int, error) {
	text, err := rec.Text(maxBytes)
	if err != nil {
		return 0, fmt.Errorf("reading text of %s@%d: %w", rec.Tag(), rec.TimeMillis(), err)
	}
	if maxBytes < 0 {
		maxBytes = 0
	}
	if len(text) > maxBytes {
		text = text[:maxBytes]
	}

	n, err := io.WriteString(w, FormatBlock(rec.Tag(), text))
	if err != nil {
		return n, fmt.Errorf("writing %s@%d: %w", rec.Tag(), rec.TimeMillis(), err)
	}
	return n, nil
}
