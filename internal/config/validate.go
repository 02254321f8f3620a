package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. The contact email is not
// required here because it is normally supplied on the command line; use
// ValidateContact once the final value is known.
func (c *Config) Validate() error {
	if err := c.validateEntrez(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return nil
}

// ValidateContact reports whether the NCBI contact email is set.
func (c *Config) ValidateContact() error {
	if strings.TrimSpace(c.Entrez.Email) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/genomefetch/config.toml"
		}
		return fmt.Errorf("entrez.email is required. Pass it as an argument, set NCBI_EMAIL, or edit %s (create with 'genomefetch config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateEntrez() error {
	if err := validateURL("entrez.base_url", c.Entrez.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.Entrez.MaxRecords <= 0 {
		return errors.New("entrez.max_records must be positive")
	}
	if c.Entrez.TimeoutSeconds <= 0 {
		return errors.New("entrez.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if err := validateURL("archive.base_url", c.Archive.BaseURL, "ftp", "http", "https"); err != nil {
		return err
	}
	switch c.Archive.Layout {
	case LayoutFlat, LayoutNested:
	default:
		return fmt.Errorf("archive.layout must be %q or %q, got %q", LayoutFlat, LayoutNested, c.Archive.Layout)
	}
	if c.Archive.TimeoutSeconds <= 0 {
		return errors.New("archive.timeout_seconds must be positive")
	}
	return nil
}

func validateURL(key, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return nil
		}
	}
	return fmt.Errorf("%s scheme must be one of %s", key, strings.Join(schemes, ", "))
}
