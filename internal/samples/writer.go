// internal/samples/writer.go
package samples

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Writer encodes samples in the format Reader consumes.
type Writer struct {
	csv        *csv.Writer
	needHeader bool
	record     []string
}

// NewWriter wraps w. Pass writeHeader when w starts out empty; appending to an
// existing recording must not repeat the column row.
func NewWriter(w io.Writer, writeHeader bool) *Writer {
	return &Writer{
		csv:        csv.NewWriter(w),
		needHeader: writeHeader,
		record:     make([]string, len(Header)),
	}
}

// Write encodes a single sample.
func (w *Writer) Write(s Sample) error {
	if w.needHeader {
		if err := w.csv.Write(Header); err != nil {
			return fmt.Errorf("failed to write sample header: %w", err)
		}
		w.needHeader = false
	}
	w.record[0] = strconv.FormatInt(s.TimeOffset.Microseconds(), 10)
	w.record[1] = strconv.Itoa(s.X)
	w.record[2] = strconv.Itoa(s.Y)
	if err := w.csv.Write(w.record); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

// WriteBatch writes the boundary sentinel followed by batch, then flushes.
func (w *Writer) WriteBatch(batch []Sample) error {
	if err := w.Write(Zero); err != nil {
		return err
	}
	for _, s := range batch {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush pushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush samples: %w", err)
	}
	return nil
}
