package repackage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/pgzip"

	"genomefetch/internal/entrez"
	"genomefetch/internal/fileutil"
	"genomefetch/internal/genbank"
	"genomefetch/internal/logging"
	"genomefetch/internal/services"
)

const (
	component     = "repackage"
	partialSuffix = ".partial"
	fastaWidth    = 60
)

// Result describes what Process did with one archive.
type Result struct {
	Folder  string
	Source  string
	Output  string
	Fasta   string
	Records int
	Bytes   int64
	Valid   bool
	// Reason explains an invalid result, naming the offending record.
	Reason string
}

// Repackager converts archives found in a single output directory.
type Repackager struct {
	dir        string
	writeFasta bool
	logger     *slog.Logger
}

// Option configures a Repackager.
type Option func(*Repackager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repackager) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFasta also writes each valid genome as <folder>.fna.
func WithFasta(enabled bool) Option {
	return func(r *Repackager) {
		r.writeFasta = enabled
	}
}

// New creates a Repackager writing outputs into dir.
func New(dir string, opts ...Option) *Repackager {
	r := &Repackager{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, component)
	return r
}

// Process validates and rewrites the archive at path.
func (r *Repackager) Process(ctx context.Context, path string) (Result, error) {
	folder, ok := entrez.FolderFromArchiveFile(filepath.Base(path))
	if !ok {
		return Result{}, services.Wrap(services.ErrValidation, component, "process",
			fmt.Sprintf("%s is not a genomic gbff archive", filepath.Base(path)), nil)
	}
	res := Result{
		Folder: folder,
		Source: path,
		Output: filepath.Join(r.dir, folder+".gbk"),
	}
	if r.writeFasta {
		res.Fasta = filepath.Join(r.dir, folder+".fna")
	}
	ctx = services.WithAccession(ctx, folder)
	logger := logging.WithContext(ctx, r.logger)

	reason, err := r.convert(ctx, &res)
	if err != nil {
		// Output-side failures say nothing about the archive itself.
		if errors.Is(err, services.ErrTransient) {
			return res, err
		}
		return res, services.Wrap(services.ErrValidation, component, "process", filepath.Base(path), err)
	}

	if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		logging.WarnWithContext(logger, "archive removal failed", "archive_cleanup_failed",
			logging.String("path", path),
			logging.Error(removeErr),
			logging.String(logging.FieldErrorHint, "remove the archive manually"),
			logging.String(logging.FieldImpact, "stale archive will be reprocessed next run"),
		)
	}

	if reason != "" {
		res.Reason = reason
		logging.WarnWithContext(logger, "genbank file missing DNA sequence", "placeholder_sequence",
			logging.String("archive", filepath.Base(path)),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "genome skipped, archive removed"),
			logging.String(logging.FieldErrorHint, "assembly likely has sequence in WGS contigs only"),
		)
		return res, nil
	}

	res.Valid = true
	logger.Info("genbank file validated",
		logging.String("output", filepath.Base(res.Output)),
		logging.Int("records", res.Records),
		logging.String("size", humanize.Bytes(uint64(res.Bytes))),
	)
	return res, nil
}

// convert streams the archive into temp outputs, committing them only if every
// record carries sequence. A non-empty reason means the archive is invalid.
func (r *Repackager) convert(ctx context.Context, res *Result) (string, error) {
	in, err := os.Open(res.Source)
	if err != nil {
		return "", err
	}
	defer in.Close()

	zr, err := pgzip.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	gbk, err := fileutil.CreateAtomic(res.Output, partialSuffix)
	if err != nil {
		return "", writeFailed(res.Output, err)
	}
	defer gbk.Abort()
	gw := genbank.NewWriter(gbk)

	var (
		fna *fileutil.AtomicFile
		fw  *fasta.Writer
	)
	if res.Fasta != "" {
		if fna, err = fileutil.CreateAtomic(res.Fasta, partialSuffix); err != nil {
			return "", writeFailed(res.Fasta, err)
		}
		defer fna.Abort()
		fw = fasta.NewWriter(fna, fastaWidth)
	}

	reader := genbank.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		res.Records++
		if rec.Placeholder() {
			return fmt.Sprintf("record %s declares %d bp without sequence", rec.Name, rec.Length), nil
		}
		if err := gw.Write(rec); err != nil {
			return "", writeFailed(res.Output, err)
		}
		if fw != nil {
			s := linear.NewSeq(rec.Name, alphabet.BytesToLetters(rec.Sequence), alphabet.DNAredundant)
			if _, err := fw.Write(s); err != nil {
				return "", writeFailed(res.Fasta, err)
			}
		}
	}
	if res.Records == 0 {
		return "archive contains no records", nil
	}

	if err := gw.Flush(); err != nil {
		return "", writeFailed(res.Output, err)
	}
	info, err := gbk.Stat()
	if err != nil {
		return "", writeFailed(res.Output, err)
	}
	res.Bytes = info.Size()
	if err := gbk.Commit(); err != nil {
		return "", writeFailed(res.Output, err)
	}
	if fna != nil {
		if err := fna.Commit(); err != nil {
			return "", writeFailed(res.Fasta, err)
		}
	}
	return "", nil
}

func writeFailed(path string, err error) error {
	return services.Wrap(services.ErrTransient, component, "write", filepath.Base(path), err)
}
