package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"genomefetch/internal/config"
	"genomefetch/internal/entrez"
	"genomefetch/internal/logging"
	"genomefetch/internal/services"
)

const component = "archive"

// partSuffix marks an in-progress download.
const partSuffix = ".part"

// Fetcher downloads one assembly's archive file to a local path.
type Fetcher interface {
	// Fetch writes the assembly's compressed GenBank file to dest and returns
	// the number of bytes written.
	Fetch(ctx context.Context, asm entrez.Assembly, dest string) (int64, error)
	Close() error
}

type options struct {
	logger     *slog.Logger
	progress   io.Writer
	httpClient *http.Client
	dial       dialFunc
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger used for transfer diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress draws a progress bar on w for each transfer.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithHTTPClient overrides the client used for http and https archives.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// New builds the Fetcher matching the scheme of archive.base_url.
func New(cfg *config.Config, opts ...Option) (Fetcher, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config required", nil)
	}
	o := options{
		logger:     logging.NewNop(),
		httpClient: &http.Client{Transport: newTransport(cfg.ArchiveTimeout())},
		dial:       dialFTP,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, component)

	base, err := url.Parse(cfg.Archive.BaseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "parse base url", err)
	}
	switch strings.ToLower(base.Scheme) {
	case "ftp":
		host := base.Host
		if base.Port() == "" {
			host += ":21"
		}
		return &ftpFetcher{
			addr:     host,
			root:     strings.TrimRight(base.Path, "/"),
			layout:   cfg.Archive.Layout,
			email:    cfg.Entrez.Email,
			timeout:  cfg.ArchiveTimeout(),
			dial:     o.dial,
			progress: o.progress,
			logger:   logger,
		}, nil
	case "http", "https":
		return &httpFetcher{
			base:     strings.TrimRight(base.String(), "/"),
			layout:   cfg.Archive.Layout,
			client:   o.httpClient,
			progress: o.progress,
			logger:   logger,
		}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, component, "new", fmt.Sprintf("unsupported scheme %q", base.Scheme), nil)
	}
}

// newTransport bounds connecting and waiting for response headers by timeout.
// The body transfer is bounded only by the caller's context, since genome
// archives can take longer than any fixed limit on a slow link.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// RemotePath returns the archive-relative path of the assembly's compressed
// GenBank file. The flat layout is <folder>/<file>; the nested layout prefixes
// it with the accession split into three-digit groups, for example
// GCA/000/002/855/.
func RemotePath(layout string, asm entrez.Assembly) (string, error) {
	rel := path.Join(asm.Folder(), asm.ArchiveFile())
	if layout != config.LayoutNested {
		return rel, nil
	}
	prefix, err := nestedPrefix(asm.Accession)
	if err != nil {
		return "", err
	}
	return path.Join(prefix, rel), nil
}

func nestedPrefix(accession string) (string, error) {
	db, rest, ok := strings.Cut(accession, "_")
	digits, _, _ := strings.Cut(rest, ".")
	if !ok || len(db) != 3 || len(digits) != 9 || strings.Trim(digits, "0123456789") != "" {
		return "", services.Wrap(services.ErrValidation, component, "remote path",
			fmt.Sprintf("accession %q does not fit the nested layout", accession), nil)
	}
	return path.Join(strings.ToUpper(db), digits[0:3], digits[3:6], digits[6:9]), nil
}

func notFound(op, remote string, err error) error {
	return services.Wrap(services.ErrNotFound, component, op,
		fmt.Sprintf("%s not in archive, likely a superseded assembly", remote), err)
}

func transferFailed(op, remote string, err error) error {
	return services.Wrap(services.ErrExternalService, component, op, fmt.Sprintf("transfer %s", remote), err)
}

// ctxReader stops a copy once ctx is cancelled for transports that do not
// watch the context themselves.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func elapsedAttrs(start time.Time, written int64) []logging.Attr {
	return []logging.Attr{
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
		logging.Int64("bytes", written),
		logging.String("size", humanize.Bytes(uint64(max(written, 0)))),
	}
}
