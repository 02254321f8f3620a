package genbank

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Record is one LOCUS ... // entry.
type Record struct {
	// Name is the LOCUS name.
	Name string
	// Length is the sequence length declared on the LOCUS line.
	Length int
	// Sequence holds the ORIGIN bases, lowercased, without numbering or spaces.
	Sequence []byte
	// Raw is the record text exactly as read, terminator line included.
	Raw []byte
}

// Placeholder reports whether the record claims a length but carries no
// bases, as in CONTIG-only or length-only GenBank records.
func (r *Record) Placeholder() bool {
	return r.Length > 0 && len(r.Sequence) == 0
}

// ErrTruncated is returned when input ends inside a record.
var ErrTruncated = errors.New("genbank: truncated record")

var (
	locusPrefix  = []byte("LOCUS")
	originPrefix = []byte("ORIGIN")
	terminator   = []byte("//")
)

// Reader yields records from a GenBank flat file stream. Text before the
// first LOCUS line, such as release file headers, is skipped.
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Read returns the next record, or io.EOF when the stream is exhausted.
func (gr *Reader) Read() (*Record, error) {
	var rec *Record
	var raw bytes.Buffer
	inOrigin := false

	for {
		line, err := gr.r.ReadBytes('\n')
		if len(line) > 0 {
			gr.line++
			trimmed := bytes.TrimRight(line, "\r\n")

			switch {
			case rec == nil:
				if bytes.HasPrefix(trimmed, locusPrefix) {
					parsed, perr := parseLocus(trimmed)
					if perr != nil {
						return nil, fmt.Errorf("genbank: line %d: %w", gr.line, perr)
					}
					rec = parsed
					raw.Write(line)
				}
			case bytes.Equal(bytes.TrimSpace(trimmed), terminator):
				raw.Write(line)
				rec.Raw = raw.Bytes()
				if !bytes.HasSuffix(rec.Raw, []byte("\n")) {
					rec.Raw = append(rec.Raw, '\n')
				}
				return rec, nil
			default:
				raw.Write(line)
				if inOrigin {
					rec.Sequence = appendBases(rec.Sequence, trimmed)
				} else if bytes.HasPrefix(trimmed, originPrefix) {
					inOrigin = true
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if rec != nil {
					return nil, fmt.Errorf("%w %q at line %d", ErrTruncated, rec.Name, gr.line)
				}
				return nil, io.EOF
			}
			return nil, fmt.Errorf("genbank: read line %d: %w", gr.line+1, err)
		}
	}
}

func parseLocus(line []byte) (*Record, error) {
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("LOCUS line without name: %q", line)
	}
	rec := &Record{Name: string(fields[1])}
	if len(fields) >= 4 && isLengthUnit(fields[3]) {
		n, err := strconv.Atoi(string(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("LOCUS %s length %q: %w", rec.Name, fields[2], err)
		}
		rec.Length = n
	}
	return rec, nil
}

func isLengthUnit(b []byte) bool {
	return bytes.Equal(b, []byte("bp")) || bytes.Equal(b, []byte("aa"))
}

// appendBases copies sequence letters from an ORIGIN line, dropping the
// leading position number and the column spacing.
func appendBases(dst, line []byte) []byte {
	for _, c := range line {
		switch {
		case c >= 'a' && c <= 'z':
			dst = append(dst, c)
		case c >= 'A' && c <= 'Z':
			dst = append(dst, c+('a'-'A'))
		case c == '*' || c == '-':
			dst = append(dst, c)
		}
	}
	return dst
}
