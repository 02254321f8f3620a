package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"genomefetch/internal/entrez"
	"genomefetch/internal/fileutil"
	"genomefetch/internal/logging"
	"genomefetch/internal/services"
)

const (
	// LinkListFile holds the linked assembly ids, one per line.
	LinkListFile = "gi_list.tmp"
	// SummaryFile holds the raw esummary payload.
	SummaryFile = "results.xml"
	// LockFile guards the directory against concurrent runs.
	LockFile = ".genomefetch.lock"
)

const component = "workspace"

// leftoverPatterns match the partial files a download or conversion
// abandons when interrupted. Other files in the directory are not ours.
var leftoverPatterns = []string{
	entrez.ArchivePattern + ".part",
	"*.gbk.partial",
	"*.fna.partial",
}

// Workspace is a locked output directory.
type Workspace struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// Open creates dir if needed and takes its run lock.
func Open(dir string, logger *slog.Logger) (*Workspace, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "open", "output directory required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "open", "create output directory", err)
	}

	lock := flock.New(filepath.Join(dir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "open", "acquire lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, component, "open",
			fmt.Sprintf("another genomefetch run is using %s", dir), nil)
	}

	return &Workspace{
		dir:    dir,
		lock:   lock,
		logger: logging.NewComponentLogger(logger, component),
	}, nil
}

// Dir returns the output directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the output directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteLinkList replaces gi_list.tmp with ids, one per line.
func (w *Workspace) WriteLinkList(ids []string) error {
	f, err := os.OpenFile(w.Path(LinkListFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrTransient, component, "write link list", "", err)
	}
	bw := bufio.NewWriter(f)
	for _, id := range ids {
		if _, err := bw.WriteString(id + "\n"); err != nil {
			_ = f.Close()
			return services.Wrap(services.ErrTransient, component, "write link list", "", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return services.Wrap(services.ErrTransient, component, "write link list", "", err)
	}
	if err := f.Close(); err != nil {
		return services.Wrap(services.ErrTransient, component, "write link list", "", err)
	}
	return nil
}

// ReadLinkList returns the non-empty lines of gi_list.tmp in order.
func (w *Workspace) ReadLinkList() ([]string, error) {
	f, err := os.Open(w.Path(LinkListFile))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "read link list", "", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "read link list", "", err)
	}
	return ids, nil
}

// WriteSummary stores the raw esummary payload in results.xml.
func (w *Workspace) WriteSummary(data []byte) error {
	if err := os.WriteFile(w.Path(SummaryFile), data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, component, "write summary", "", err)
	}
	return nil
}

// OpenSummary opens results.xml for parsing.
func (w *Workspace) OpenSummary() (*os.File, error) {
	f, err := os.Open(w.Path(SummaryFile))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "open summary", "", err)
	}
	return f, nil
}

// HasOutput reports whether the assembly's .gbk output already exists.
func (w *Workspace) HasOutput(asm entrez.Assembly) (bool, error) {
	return w.HasFolderOutput(asm.Folder())
}

// HasFolderOutput is HasOutput keyed by archive folder name.
func (w *Workspace) HasFolderOutput(folder string) (bool, error) {
	return fileutil.Exists(w.Path(entrez.OutputFileFor(folder)))
}

// Archives lists downloaded archives in the directory, sorted by name. This
// includes archives left by earlier runs.
func (w *Workspace) Archives() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, entrez.ArchivePattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// CleanupResult lists what Cleanup removed.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// Cleanup removes partial downloads and, unless keepTemp is set, the
// intermediate link list and summary files.
func (w *Workspace) Cleanup(keepTemp bool) CleanupResult {
	var targets []string
	if !keepTemp {
		targets = append(targets, w.Path(SummaryFile), w.Path(LinkListFile))
	}
	for _, pattern := range leftoverPatterns {
		matches, err := filepath.Glob(filepath.Join(w.dir, pattern))
		if err == nil {
			targets = append(targets, matches...)
		}
	}

	var result CleanupResult
	for _, path := range targets {
		err := os.Remove(path)
		switch {
		case err == nil:
			result.Removed = append(result.Removed, path)
			w.logger.Debug("removed intermediate file", logging.String("path", path))
		case errors.Is(err, os.ErrNotExist):
		default:
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(w.logger, "failed to remove intermediate file", "workspace_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output directory permissions"),
				logging.String(logging.FieldImpact, "intermediate file left behind"),
			)
		}
	}
	return result
}

// Close releases the run lock. The lock file stays: removing it after unlock
// would let a waiting run lock an unlinked inode while a new run locks a
// fresh file.
func (w *Workspace) Close() error {
	if w.lock == nil {
		return nil
	}
	err := w.lock.Unlock()
	w.lock = nil
	return err
}
