// internal/samples/reader.go
package samples

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Header is the column row written at the top of a fresh recording file.
var Header = []string{"time_us", "x", "y"}

// Reader decodes a recorded sample stream. Rows that cannot be parsed are
// skipped and counted; they never abort the read.
type Reader struct {
	csv       *csv.Reader
	logger    *zap.Logger
	row       int
	malformed int
}

// NewReader wraps r. A nil logger discards diagnostics.
func NewReader(r io.Reader, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return &Reader{csv: cr, logger: logger.Named("samples")}
}

// Next returns the next well formed sample, or io.EOF once the stream is
// exhausted.
func (r *Reader) Next() (Sample, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Sample{}, io.EOF
		}
		r.row++

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.skip(err)
			continue
		}
		if err != nil {
			return Sample{}, fmt.Errorf("failed to read sample row %d: %w", r.row, err)
		}

		if r.row == 1 && isHeader(record) {
			continue
		}

		s, err := parseRecord(record)
		if err != nil {
			r.skip(err)
			continue
		}
		return s, nil
	}
}

// ReadAll drains the stream.
func (r *Reader) ReadAll() ([]Sample, error) {
	var out []Sample
	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

// Malformed returns the number of rows skipped so far.
func (r *Reader) Malformed() int {
	return r.malformed
}

// Rows returns the number of rows consumed so far, including skipped ones.
func (r *Reader) Rows() int {
	return r.row
}

func (r *Reader) skip(err error) {
	r.malformed++
	r.logger.Warn("Skipping malformed sample row", zap.Int("row", r.row), zap.Error(err))
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), Header[0])
}

func parseRecord(record []string) (Sample, error) {
	if len(record) != len(Header) {
		return Sample{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(record))
	}
	us, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid time_us: %w", err)
	}
	if us < 0 {
		return Sample{}, fmt.Errorf("negative time_us %d", us)
	}
	x, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return Sample{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil {
		return Sample{}, fmt.Errorf("invalid y: %w", err)
	}
	return Sample{TimeOffset: time.Duration(us) * time.Microsecond, X: x, Y: y}, nil
}
