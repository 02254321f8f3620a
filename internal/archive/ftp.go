package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/textproto"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"genomefetch/internal/entrez"
	"genomefetch/internal/fileutil"
	"genomefetch/internal/logging"
)

// ftpConn is the subset of *ftp.ServerConn the fetcher uses.
type ftpConn interface {
	Login(user, password string) error
	FileSize(path string) (int64, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

type serverConn struct {
	*ftp.ServerConn
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	resp, err := c.ServerConn.Retr(path)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return serverConn{conn}, nil
}

type ftpFetcher struct {
	addr     string
	root     string
	layout   string
	email    string
	timeout  time.Duration
	dial     dialFunc
	progress io.Writer
	logger   *slog.Logger

	conn ftpConn
}

func (f *ftpFetcher) Fetch(ctx context.Context, asm entrez.Assembly, dest string) (int64, error) {
	rel, err := RemotePath(f.layout, asm)
	if err != nil {
		return 0, err
	}
	remote := path.Join("/", f.root, rel)
	logger := logging.WithContext(ctx, f.logger)

	conn, err := f.connect(ctx)
	if err != nil {
		return 0, transferFailed("ftp connect", f.addr, err)
	}

	size, err := conn.FileSize(remote)
	if err != nil {
		if isUnavailable(err) {
			return 0, notFound("ftp size", remote, err)
		}
		// SIZE is optional; fall through to RETR and let it decide.
		logger.Debug("ftp size unavailable", logging.String("remote", remote), logging.Error(err))
		size = -1
	}

	start := time.Now()
	body, err := conn.Retr(remote)
	if err != nil {
		if isUnavailable(err) {
			return 0, notFound("ftp retr", remote, err)
		}
		f.drop()
		return 0, transferFailed("ftp retr", remote, err)
	}

	src := newProgressReader(ctxReader{ctx: ctx, r: body}, size, asm.Accession, f.progress)
	written, copyErr := fileutil.CopyToFile(dest, partSuffix, src)
	src.finish(copyErr)
	closeErr := body.Close()
	if copyErr != nil {
		f.drop()
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, transferFailed("ftp retr", remote, copyErr)
	}
	if closeErr != nil {
		f.drop()
		_ = os.Remove(dest)
		return written, transferFailed("ftp retr", remote, closeErr)
	}

	attrs := append([]logging.Attr{logging.String("remote", remote)}, elapsedAttrs(start, written)...)
	logger.Debug("ftp download complete", logging.Args(attrs...)...)
	return written, nil
}

func (f *ftpFetcher) connect(ctx context.Context) (ftpConn, error) {
	if f.conn != nil {
		return f.conn, nil
	}
	conn, err := f.dial(ctx, f.addr, f.timeout)
	if err != nil {
		return nil, err
	}
	if err := conn.Login("anonymous", f.email); err != nil {
		_ = conn.Quit()
		return nil, err
	}
	f.logger.Debug("ftp session opened", logging.String("addr", f.addr))
	f.conn = conn
	return conn, nil
}

// drop discards the session after a failure so the next fetch redials.
func (f *ftpFetcher) drop() {
	if f.conn == nil {
		return
	}
	_ = f.conn.Quit()
	f.conn = nil
}

func (f *ftpFetcher) Close() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Quit()
	f.conn = nil
	return err
}

func isUnavailable(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code == ftp.StatusFileUnavailable
	}
	return false
}
