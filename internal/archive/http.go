package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"genomefetch/internal/entrez"
	"genomefetch/internal/fileutil"
	"genomefetch/internal/logging"
)

type httpFetcher struct {
	base     string
	layout   string
	client   *http.Client
	progress io.Writer
	logger   *slog.Logger
}

func (f *httpFetcher) Fetch(ctx context.Context, asm entrez.Assembly, dest string) (int64, error) {
	rel, err := RemotePath(f.layout, asm)
	if err != nil {
		return 0, err
	}
	remote := f.base + "/" + rel
	logger := logging.WithContext(ctx, f.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote, nil)
	if err != nil {
		return 0, transferFailed("http get", remote, fmt.Errorf("build request: %w", err))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, transferFailed("http get", remote, fmt.Errorf("execute request (latency=%v): %w", time.Since(start), err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, notFound("http get", remote, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return 0, transferFailed("http get", remote, fmt.Errorf("status %d", resp.StatusCode))
	}

	src := newProgressReader(resp.Body, resp.ContentLength, asm.Accession, f.progress)
	written, err := fileutil.CopyToFile(dest, partSuffix, src)
	src.finish(err)
	if err != nil {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, transferFailed("http get", remote, err)
	}

	attrs := append([]logging.Attr{logging.String("remote", remote)}, elapsedAttrs(start, written)...)
	logger.Debug("http download complete", logging.Args(attrs...)...)
	return written, nil
}

func (f *httpFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
