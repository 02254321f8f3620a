package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
)

// GenBankRecord renders a minimal GenBank record carrying seq in its ORIGIN block.
func GenBankRecord(name, seq string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOCUS       %-16s %8d bp    DNA     linear   CON 15-MAR-2019\n", name, len(seq))
	fmt.Fprintf(&b, "DEFINITION  %s test contig.\n", name)
	fmt.Fprintf(&b, "ACCESSION   %s\n", name)
	b.WriteString("FEATURES             Location/Qualifiers\n")
	fmt.Fprintf(&b, "     source          1..%d\n", len(seq))
	b.WriteString("ORIGIN      \n")
	for i := 0; i < len(seq); i += 60 {
		end := min(i+60, len(seq))
		fmt.Fprintf(&b, "%9d", i+1)
		for j := i; j < end; j += 10 {
			b.WriteByte(' ')
			b.WriteString(seq[j:min(j+10, end)])
		}
		b.WriteByte('\n')
	}
	b.WriteString("//\n")
	return b.String()
}

// PlaceholderRecord renders a CONTIG-only record that declares length bases
// but carries none.
func PlaceholderRecord(name string, length int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "LOCUS       %-16s %8d bp    DNA     linear   CON 15-MAR-2019\n", name, length)
	fmt.Fprintf(&b, "DEFINITION  %s test supercontig.\n", name)
	fmt.Fprintf(&b, "CONTIG      join(%s.1:1..%d)\n", name, length)
	b.WriteString("//\n")
	return b.String()
}

// Gzip returns content compressed, for serving from fake archives.
func Gzip(t testing.TB, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// WriteGzip compresses content into path, creating parent directories.
func WriteGzip(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, Gzip(t, content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
