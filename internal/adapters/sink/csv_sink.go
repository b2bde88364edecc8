package sink

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// TimestampLayout is the sub-second trip-log timestamp format.
const TimestampLayout = "2006-01-02 15:04:05.000"

// NotAvailable marks a parameter that has never produced a valid reading.
const NotAvailable = "N/A"

// CSVSink writes trip records as delimited rows. The header is written at
// construction; rows keep strict append order.
type CSVSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *csv.Writer
	closed bool
}

// NewCSVSink creates (or truncates) path and writes the header row.
func NewCSVSink(path string, params []domain.ParamID) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	header := make([]string, 0, len(params)+1)
	header = append(header, "timestamp")
	for _, p := range params {
		header = append(header, string(p))
	}
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &CSVSink{path: path, file: f, w: w}, nil
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the trip file location.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) WriteRows(recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}

	for _, rec := range recs {
		row := make([]string, 0, len(rec.Values)+1)
		row = append(row, rec.Timestamp.Format(TimestampLayout))
		for _, v := range rec.Values {
			if !v.Available {
				row = append(row, NotAvailable)
				continue
			}
			row = append(row, strconv.FormatInt(v.Value, 10))
		}
		if err := s.w.Write(row); err != nil {
			return err
		}
	}

	s.w.Flush()
	return s.w.Error()
}

// Close flushes buffered rows and releases the file. Safe to call twice.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

var _ ports.RecordSink = (*CSVSink)(nil)
