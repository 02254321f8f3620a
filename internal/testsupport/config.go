package testsupport

import (
	"path/filepath"
	"testing"

	"genomefetch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique output directory per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Entrez.Email = "tester@example.org"
	cfgVal.Entrez.TimeoutSeconds = 5
	cfgVal.Archive.TimeoutSeconds = 5
	cfgVal.Output.Dir = filepath.Join(base, "genomes")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEntrezURL points the E-utilities client at url, typically an httptest server.
func WithEntrezURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Entrez.BaseURL = url
	}
}

// WithArchiveURL overrides the archive root.
func WithArchiveURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.BaseURL = url
	}
}

// WithFasta enables FASTA export next to the GenBank output.
func WithFasta() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.WriteFasta = true
	}
}

// WithMetricsFile enables the Prometheus textfile export under the base dir.
func WithMetricsFile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, name)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Output.Dir)
}
