package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"genomefetch/internal/config"
)

const checkTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckContact verifies that a contact email is configured.
func CheckContact(cfg *config.Config) Result {
	const name = "NCBI contact"
	if err := cfg.ValidateContact(); err != nil {
		return Result{Name: name, Detail: "missing email"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Entrez.Email}
}

// CheckEntrez verifies that the E-utilities endpoint answers einfo.
func CheckEntrez(ctx context.Context, cfg *config.Config) Result {
	const name = "E-utilities"

	base := strings.TrimRight(strings.TrimSpace(cfg.Entrez.BaseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("db", cfg.Entrez.SearchDB)
	params.Set("tool", cfg.Entrez.Tool)
	if cfg.Entrez.Email != "" {
		params.Set("email", cfg.Entrez.Email)
	}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/einfo.fcgi?"+params.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}

	client := &http.Client{Timeout: checkTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckArchive verifies that the genome archive host accepts connections.
func CheckArchive(ctx context.Context, cfg *config.Config) Result {
	const name = "Genome archive"

	base, err := url.Parse(cfg.Archive.BaseURL)
	if err != nil || base.Host == "" {
		return Result{Name: name, Detail: "invalid url"}
	}
	port := base.Port()
	if port == "" {
		switch strings.ToLower(base.Scheme) {
		case "ftp":
			port = "21"
		case "http":
			port = "80"
		default:
			port = "443"
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", net.JoinHostPort(base.Hostname(), port))
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base.Host)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (host unreachable)"
	}
	return err.Error()
}
