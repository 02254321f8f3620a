package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"genomefetch/internal/archive"
	"genomefetch/internal/config"
	"genomefetch/internal/entrez"
	"genomefetch/internal/logging"
	"genomefetch/internal/metrics"
	"genomefetch/internal/query"
	"genomefetch/internal/repackage"
	"genomefetch/internal/services"
	"genomefetch/internal/workspace"
)

const component = "pipeline"

// ErrDeclined is returned when the operator answers no at the confirmation
// prompt. No link request has been made at that point.
var ErrDeclined = errors.New("declined by operator")

// ConfirmFunc is asked whether to continue after the search reports count
// matching projects. Returning false stops the run with ErrDeclined.
type ConfirmFunc func(ctx context.Context, count int) (bool, error)

// Entrez is the subset of the E-utilities client a run needs.
type Entrez interface {
	ESearch(ctx context.Context, db, term string, retmax int) (*entrez.SearchResult, error)
	ELink(ctx context.Context, dbFrom, dbTo string, ids []string) ([]string, error)
	ESummary(ctx context.Context, db string, ids []string) ([]byte, error)
}

// Options describes one run.
type Options struct {
	SearchTerm    string
	OnlyAnnotated bool
	// MaxRecords bounds the esearch result; zero uses entrez.max_records.
	MaxRecords int
	// Confirm gates the run after the search. Nil accepts.
	Confirm ConfirmFunc
}

// Runner wires the run's collaborators.
type Runner struct {
	cfg      *config.Config
	entrez   Entrez
	fetcher  archive.Fetcher
	base     *slog.Logger
	logger   *slog.Logger
	observer Observer
	metrics  *metrics.Recorder
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.base = logger
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(observer Observer) Option {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithMetrics records run metrics; they are written to metrics.textfile_path
// when that is configured.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(r *Runner) {
		r.metrics = rec
	}
}

// New builds a Runner.
func New(cfg *config.Config, client Entrez, fetcher archive.Fetcher, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		entrez:   client,
		fetcher:  fetcher,
		base:     logging.NewNop(),
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.base, component)
	return r
}

// Run executes a fetch. The returned report is non-nil whenever the search
// succeeded, including when the operator declined.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if r.cfg == nil || r.entrez == nil || r.fetcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "run", "runner is missing collaborators", nil)
	}
	if err := r.cfg.ValidateContact(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "run", "", err)
	}

	report := &Report{
		RunID:      uuid.NewString(),
		SearchTerm: opts.SearchTerm,
		Expression: query.Build(opts.SearchTerm, opts.OnlyAnnotated),
		Started:    r.now(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	ws, err := workspace.Open(r.cfg.Output.Dir, r.base)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("release workspace lock failed", logging.Error(err))
		}
	}()

	logger.Info("run started",
		logging.String("search_term", opts.SearchTerm),
		logging.String("output_dir", ws.Dir()),
	)

	projectIDs, err := r.search(ctx, opts, report)
	if err != nil {
		return nil, r.fail(logger, "esearch", err)
	}

	if opts.Confirm != nil {
		ok, err := opts.Confirm(ctx, report.Matches)
		if err != nil {
			return report, err
		}
		if !ok {
			logger.Info("run declined at confirmation", logging.Int("matches", report.Matches))
			return report, ErrDeclined
		}
	}

	assemblies, err := r.resolveAssemblies(ctx, ws, projectIDs, report)
	if err != nil {
		return nil, r.fail(logger, "resolve", err)
	}

	pending, err := r.download(ctx, ws, assemblies, report)
	if err != nil {
		return nil, r.fail(logger, "download", err)
	}

	if err := r.repackage(ctx, ws, pending, report); err != nil {
		return nil, r.fail(logger, "repackage", err)
	}

	ws.Cleanup(r.cfg.Output.KeepTemp)

	report.Produced = report.Count(StatusConverted)
	report.Finished = r.now()
	r.recordMetrics(logger, report)

	logger.Info("run finished",
		logging.Int("produced", report.Produced),
		logging.Int("skipped", report.Count(StatusSkipped)),
		logging.Int("not_found", report.Count(StatusNotFound)),
		logging.Int("invalid", report.Count(StatusInvalid)),
		logging.Int("failed", report.Count(StatusFailed)),
		logging.Duration("elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond)),
	)
	return report, nil
}

func (r *Runner) search(ctx context.Context, opts Options, report *Report) ([]string, error) {
	ctx = services.WithStep(ctx, "esearch")
	logger := logging.WithContext(ctx, r.logger)

	retmax := opts.MaxRecords
	if retmax <= 0 {
		retmax = r.cfg.Entrez.MaxRecords
	}
	result, err := r.entrez.ESearch(ctx, r.cfg.Entrez.SearchDB, report.Expression, retmax)
	if err != nil {
		return nil, err
	}
	report.Matches = result.Count
	report.ProjectIDs = len(result.IDs)
	logger.Info("bioproject search complete",
		logging.String("expression", report.Expression),
		logging.Int("matches", result.Count),
		logging.Int("ids", len(result.IDs)),
	)
	r.observer.SearchCompleted(report.Expression, result.Count)
	return result.IDs, nil
}

// resolveAssemblies links projects to assemblies through gi_list.tmp and parses
// their summaries through results.xml.
func (r *Runner) resolveAssemblies(ctx context.Context, ws *workspace.Workspace, projectIDs []string, report *Report) ([]entrez.Assembly, error) {
	linkCtx := services.WithStep(ctx, "elink")
	links, err := r.entrez.ELink(linkCtx, r.cfg.Entrez.SearchDB, r.cfg.Entrez.AssemblyDB, projectIDs)
	if err != nil {
		return nil, err
	}
	if err := ws.WriteLinkList(links); err != nil {
		return nil, err
	}
	ids, err := ws.ReadLinkList()
	if err != nil {
		return nil, err
	}
	report.Linked = len(ids)
	logging.WithContext(linkCtx, r.logger).Info("cross-referenced bioproject ids with assembly ids",
		logging.Int("projects", len(projectIDs)),
		logging.Int("assemblies", len(ids)),
		logging.String("file", ws.Path(workspace.LinkListFile)),
	)
	r.observer.Linked(len(ids))

	summaryCtx := services.WithStep(ctx, "esummary")
	payload, err := r.entrez.ESummary(summaryCtx, r.cfg.Entrez.AssemblyDB, ids)
	if err != nil {
		return nil, err
	}
	if err := ws.WriteSummary(payload); err != nil {
		return nil, err
	}
	f, err := ws.OpenSummary()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	assemblies, err := entrez.ParseSummaries(f)
	if err != nil {
		return nil, err
	}
	logging.WithContext(summaryCtx, r.logger).Info("fetched assembly summaries",
		logging.Int("assemblies", len(assemblies)),
		logging.String("file", ws.Path(workspace.SummaryFile)),
	)
	r.observer.SummariesParsed(len(assemblies))
	return assemblies, nil
}

// download fetches every assembly without an existing .gbk and returns the
// indexes of their outcomes in report, keyed by folder, for repackage to fill.
func (r *Runner) download(ctx context.Context, ws *workspace.Workspace, assemblies []entrez.Assembly, report *Report) (map[string]int, error) {
	ctx = services.WithStep(ctx, "download")
	pending := make(map[string]int, len(assemblies))

	for _, asm := range assemblies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		itemCtx := services.WithAccession(ctx, asm.Accession)
		logger := logging.WithContext(itemCtx, r.logger)

		exists, err := ws.HasOutput(asm)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, component, "download", "stat output", err)
		}
		if exists {
			o := outcomeFor(asm, StatusSkipped)
			o.Output = ws.Path(asm.OutputFile())
			o.Reason = "already downloaded and converted"
			logger.Info("genome already downloaded and converted, skipping",
				logging.String("organism", asm.Organism),
				logging.String("output", asm.OutputFile()),
			)
			report.Outcomes = append(report.Outcomes, o)
			r.observer.Outcome(o)
			continue
		}

		written, err := r.fetcher.Fetch(itemCtx, asm, ws.Path(asm.ArchiveFile()))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			status := StatusFailed
			hint := "check network access to the genome archive"
			if services.IsNotFound(err) {
				status = StatusNotFound
				hint = "assembly was likely superseded; search again for the current version"
			}
			o := outcomeFor(asm, status)
			o.Reason = err.Error()
			logging.WarnWithContext(logger, "genome download failed", "download_"+string(status),
				logging.String("organism", asm.Organism),
				logging.String("file", asm.ArchiveFile()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint),
				logging.String(logging.FieldImpact, "genome skipped"),
			)
			report.Outcomes = append(report.Outcomes, o)
			r.observer.Outcome(o)
			continue
		}

		o := outcomeFor(asm, StatusFailed)
		o.Downloaded = written
		o.Reason = "archive downloaded but not converted"
		pending[asm.Folder()] = len(report.Outcomes)
		report.Outcomes = append(report.Outcomes, o)
		if r.metrics != nil {
			r.metrics.AddBytes(written)
		}
		logger.Info("downloaded genome archive",
			logging.String("organism", asm.Organism),
			logging.String("file", asm.ArchiveFile()),
			logging.Int64("bytes", written),
		)
		r.observer.Downloaded(asm, written)
	}
	return pending, nil
}

// repackage validates every archive in the directory, including leftovers
// from earlier runs, and records the result.
func (r *Runner) repackage(ctx context.Context, ws *workspace.Workspace, pending map[string]int, report *Report) error {
	ctx = services.WithStep(ctx, "repackage")
	archives, err := ws.Archives()
	if err != nil {
		return services.Wrap(services.ErrTransient, component, "repackage", "list archives", err)
	}
	rp := repackage.New(ws.Dir(),
		repackage.WithLogger(r.base),
		repackage.WithFasta(r.cfg.Output.WriteFasta),
	)

	for _, path := range archives {
		if err := ctx.Err(); err != nil {
			return err
		}
		skipped, err := r.skipConverted(ctx, ws, path, report)
		if err != nil {
			return err
		}
		if skipped {
			continue
		}
		r.observer.Loading(filepath.Base(path))

		res, procErr := rp.Process(ctx, path)
		if procErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
		}

		var o *Outcome
		if idx, ok := pending[res.Folder]; ok && res.Folder != "" {
			o = &report.Outcomes[idx]
		} else {
			folder := res.Folder
			if folder == "" {
				folder = filepath.Base(path)
			}
			report.Outcomes = append(report.Outcomes, Outcome{Folder: folder})
			o = &report.Outcomes[len(report.Outcomes)-1]
		}
		o.Records = res.Records

		switch {
		case procErr != nil:
			o.Status = StatusFailed
			o.Reason = procErr.Error()
			hint := "check free space and permissions in the output directory"
			if services.IsValidation(procErr) {
				hint = "archive kept for inspection; delete it to retry the download"
			}
			logging.WarnWithContext(logging.WithContext(services.WithAccession(ctx, o.Folder), r.logger),
				"genbank conversion failed", "repackage_failed",
				logging.String("archive", filepath.Base(path)),
				logging.Error(procErr),
				logging.String(logging.FieldErrorHint, hint),
				logging.String(logging.FieldImpact, "genome not converted"),
			)
		case res.Valid:
			o.Status = StatusConverted
			o.Output = res.Output
			o.Reason = ""
		default:
			o.Status = StatusInvalid
			o.Reason = res.Reason
		}
		r.observer.Outcome(*o)
	}
	return nil
}

// fail logs a run-ending error once and returns it. Cancellation is not
// logged; the caller reports it.
func (r *Runner) fail(logger *slog.Logger, step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	hint := "check network access to NCBI and retry"
	if step == "repackage" {
		hint = "check the output directory"
	}
	logging.ErrorWithContext(logger, "run failed", "run_failed",
		logging.String(logging.FieldStep, step),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
	)
	return err
}

// skipConverted drops an archive whose .gbk output already exists so the
// output is never rewritten. The folder is reported skipped once.
func (r *Runner) skipConverted(ctx context.Context, ws *workspace.Workspace, path string, report *Report) (bool, error) {
	folder, ok := entrez.FolderFromArchiveFile(filepath.Base(path))
	if !ok {
		return false, nil
	}
	exists, err := ws.HasFolderOutput(folder)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, component, "repackage", "stat output", err)
	}
	if !exists {
		return false, nil
	}

	logger := logging.WithContext(services.WithAccession(ctx, folder), r.logger)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove archive for converted genome", "repackage_remove_failed",
			logging.String("archive", filepath.Base(path)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
			logging.String(logging.FieldImpact, "archive left behind"),
		)
	}
	logger.Info("archive already converted, existing output kept",
		logging.String("archive", filepath.Base(path)),
		logging.String("output", entrez.OutputFileFor(folder)),
	)

	for _, o := range report.Outcomes {
		if o.Folder == folder && o.Status == StatusSkipped {
			return true, nil
		}
	}
	o := Outcome{
		Folder: folder,
		Status: StatusSkipped,
		Output: ws.Path(entrez.OutputFileFor(folder)),
		Reason: "already downloaded and converted",
	}
	report.Outcomes = append(report.Outcomes, o)
	r.observer.Outcome(o)
	return true, nil
}

func (r *Runner) recordMetrics(logger *slog.Logger, report *Report) {
	if r.metrics == nil {
		return
	}
	r.metrics.SetMatches(report.Matches)
	r.metrics.SetLinked(report.Linked)
	for _, o := range report.Outcomes {
		r.metrics.ObserveOutcome(string(o.Status))
	}
	r.metrics.Finish(report.Started, report.Finished)

	path := r.cfg.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := r.metrics.WriteTextfile(path); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
			logging.String(logging.FieldImpact, "run metrics not exported"),
		)
	}
}
