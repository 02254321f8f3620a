package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Entrez contains configuration for the NCBI E-utilities endpoints.
type Entrez struct {
	BaseURL        string `toml:"base_url"`
	Tool           string `toml:"tool"`
	Email          string `toml:"email"`
	SearchDB       string `toml:"search_db"`
	AssemblyDB     string `toml:"assembly_db"`
	MaxRecords     int    `toml:"max_records"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Archive contains configuration for the genome file archive.
type Archive struct {
	BaseURL        string `toml:"base_url"`
	Layout         string `toml:"layout"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Output contains configuration for where and how genomes are written.
type Output struct {
	Dir        string `toml:"dir"`
	KeepTemp   bool   `toml:"keep_temp"`
	WriteFasta bool   `toml:"write_fasta"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the run metrics export.
type Metrics struct {
	// TextfilePath is where Prometheus text-format metrics are written after
	// each run. Empty disables the export.
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for genomefetch.
//
// Configuration sections by subsystem:
//   - Entrez: E-utilities endpoint, contact identity, databases, limits
//   - Archive: genome archive root, path layout, transfer timeout
//   - Output: working directory, temp file retention, FASTA export
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Entrez  Entrez  `toml:"entrez"`
	Archive Archive `toml:"archive"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/genomefetch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/genomefetch/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("genomefetch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory and the parent of the
// metrics textfile when one is configured.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Output.Dir, err)
	}
	if path := strings.TrimSpace(c.Metrics.TextfilePath); path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory %q: %w", dir, err)
		}
	}
	return nil
}

// EntrezTimeout returns the E-utilities request timeout.
func (c *Config) EntrezTimeout() time.Duration {
	return time.Duration(c.Entrez.TimeoutSeconds) * time.Second
}

// ArchiveTimeout bounds connecting to the archive and waiting for it to
// start a transfer. Transfers themselves are not time limited.
func (c *Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Archive.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
