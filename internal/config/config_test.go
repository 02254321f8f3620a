package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"genomefetch/internal/config"
)

func TestLoadDefaultConfigUsesEnvEmailAndExpandsPaths(t *testing.T) {
	t.Setenv("NCBI_EMAIL", "someone@example.org")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Entrez.Email != "someone@example.org" {
		t.Fatalf("expected email from env, got %q", cfg.Entrez.Email)
	}
	if cfg.Entrez.MaxRecords != 1000 {
		t.Fatalf("unexpected max records default: %d", cfg.Entrez.MaxRecords)
	}
	if cfg.Entrez.SearchDB != "bioproject" || cfg.Entrez.AssemblyDB != "assembly" {
		t.Fatalf("unexpected databases: %q %q", cfg.Entrez.SearchDB, cfg.Entrez.AssemblyDB)
	}
	if cfg.Archive.BaseURL != config.Default().Archive.BaseURL {
		t.Fatalf("unexpected archive base url: %q", cfg.Archive.BaseURL)
	}
	if cfg.Archive.Layout != config.LayoutFlat {
		t.Fatalf("unexpected archive layout: %q", cfg.Archive.Layout)
	}
	if !filepath.IsAbs(cfg.Output.Dir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Output.Dir)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if err := cfg.ValidateContact(); err != nil {
		t.Fatalf("ValidateContact: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "genomefetch.toml")
	outputDir := filepath.Join(tempDir, "genomes")

	type payload struct {
		Entrez struct {
			Email      string `toml:"email"`
			MaxRecords int    `toml:"max_records"`
		} `toml:"entrez"`
		Archive struct {
			BaseURL string `toml:"base_url"`
			Layout  string `toml:"layout"`
		} `toml:"archive"`
		Output struct {
			Dir        string `toml:"dir"`
			WriteFasta bool   `toml:"write_fasta"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Entrez.Email = "lab@example.org"
	custom.Entrez.MaxRecords = 25
	custom.Archive.BaseURL = "https://ftp.ncbi.nlm.nih.gov/genomes/all/"
	custom.Archive.Layout = " Nested "
	custom.Output.Dir = outputDir
	custom.Output.WriteFasta = true
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Entrez.Email != "lab@example.org" {
		t.Fatalf("expected email from file, got %q", cfg.Entrez.Email)
	}
	if cfg.Entrez.MaxRecords != 25 {
		t.Fatalf("expected max records 25, got %d", cfg.Entrez.MaxRecords)
	}
	if cfg.Archive.BaseURL != "https://ftp.ncbi.nlm.nih.gov/genomes/all" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Archive.BaseURL)
	}
	if cfg.Archive.Layout != config.LayoutNested {
		t.Fatalf("expected nested layout, got %q", cfg.Archive.Layout)
	}
	if cfg.Output.Dir != outputDir {
		t.Fatalf("unexpected output dir: %q", cfg.Output.Dir)
	}
	if !cfg.Output.WriteFasta {
		t.Fatal("expected write_fasta to be true")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir to exist: %v", err)
	}
}

func TestFileEmailWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "genomefetch.toml")
	if err := os.WriteFile(configPath, []byte("[entrez]\nemail = \"file@example.org\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NCBI_EMAIL", "env@example.org")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Entrez.Email != "file@example.org" {
		t.Fatalf("expected file email, got %q", cfg.Entrez.Email)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[entrez]") {
		t.Fatalf("sample config missing entrez section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Archive.BaseURL != config.Default().Archive.BaseURL {
		t.Fatalf("sample archive url drifted from defaults: %q", cfg.Archive.BaseURL)
	}
	if cfg.Entrez.MaxRecords != config.Default().Entrez.MaxRecords {
		t.Fatalf("sample max_records drifted from defaults: %d", cfg.Entrez.MaxRecords)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative max records",
			mutate: func(c *config.Config) { c.Entrez.MaxRecords = -1 },
			want:   "entrez.max_records",
		},
		{
			name:   "unsupported entrez scheme",
			mutate: func(c *config.Config) { c.Entrez.BaseURL = "ftp://eutils.example.org" },
			want:   "entrez.base_url",
		},
		{
			name:   "archive without host",
			mutate: func(c *config.Config) { c.Archive.BaseURL = "ftp://" },
			want:   "archive.base_url",
		},
		{
			name:   "unknown layout",
			mutate: func(c *config.Config) { c.Archive.Layout = "sharded" },
			want:   "archive.layout",
		},
		{
			name:   "zero archive timeout",
			mutate: func(c *config.Config) { c.Archive.TimeoutSeconds = 0 },
			want:   "archive.timeout_seconds",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateContactRequiresEmail(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateContact(); err == nil {
		t.Fatal("expected missing email to fail")
	}
	cfg.Entrez.Email = "someone@example.org"
	if err := cfg.ValidateContact(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
