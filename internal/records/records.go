// Package records writes the decision output surface: a flat CSV stream of
// one record per detection tick, consumable by any downstream tool.
package records

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/banshee-data/presence.report/internal/sense"
)

// header is the fixed column order of the record stream.
var header = []string{
	"timestamp",
	"session_id",
	"state",
	"variance",
	"confidence",
	"rssi",
	"window_fill",
	"activity",
}

// Writer is a concurrency-safe, buffered CSV sink for decision records. The
// underlying bufio.Writer absorbs syscall overhead; Flush is driven by the
// caller (typically on shutdown or a timer), keeping the hot path off disk.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

// NewWriter creates (or truncates) the record file and writes the header row.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record sink create %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	cw := csv.NewWriter(bw)

	w := &Writer{file: f, buf: bw, csv: cw}
	if err := cw.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("record sink header: %w", err)
	}
	return w, nil
}

// Append writes one result as a record row.
func (w *Writer) Append(res sense.Result) error {
	d := res.Decision
	row := []string{
		d.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		d.SessionID,
		d.State.String(),
		strconv.FormatFloat(d.Variance, 'f', 6, 64),
		strconv.FormatFloat(d.Confidence, 'f', 4, 64),
		strconv.Itoa(d.RSSI),
		strconv.Itoa(d.WindowFill),
		string(res.Activity),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("record sink write: %w", err)
	}
	w.rows++
	return nil
}

// Rows returns the number of records appended so far.
func (w *Writer) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Flush drains the CSV and buffer layers to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("record sink flush: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes and closes the record file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
