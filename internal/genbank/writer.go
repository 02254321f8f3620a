package genbank

import (
	"bufio"
	"io"
)

// Writer writes records back out in GenBank format.
type Writer struct {
	w       *bufio.Writer
	records int
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// Write emits rec's raw text unchanged.
func (gw *Writer) Write(rec *Record) error {
	if _, err := gw.w.Write(rec.Raw); err != nil {
		return err
	}
	gw.records++
	return nil
}

// Records returns how many records have been written.
func (gw *Writer) Records() int {
	return gw.records
}

// Flush flushes buffered output.
func (gw *Writer) Flush() error {
	return gw.w.Flush()
}
