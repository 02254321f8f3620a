package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeEntrez()
	c.normalizeArchive()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeEntrez() {
	c.Entrez.BaseURL = strings.TrimRight(strings.TrimSpace(c.Entrez.BaseURL), "/")
	if c.Entrez.BaseURL == "" {
		c.Entrez.BaseURL = defaultEntrezBaseURL
	}
	c.Entrez.Tool = strings.TrimSpace(c.Entrez.Tool)
	if c.Entrez.Tool == "" {
		c.Entrez.Tool = defaultEntrezTool
	}
	c.Entrez.Email = strings.TrimSpace(c.Entrez.Email)
	if c.Entrez.Email == "" {
		if value, ok := os.LookupEnv("NCBI_EMAIL"); ok {
			c.Entrez.Email = strings.TrimSpace(value)
		}
	}
	c.Entrez.SearchDB = strings.TrimSpace(c.Entrez.SearchDB)
	if c.Entrez.SearchDB == "" {
		c.Entrez.SearchDB = defaultSearchDB
	}
	c.Entrez.AssemblyDB = strings.TrimSpace(c.Entrez.AssemblyDB)
	if c.Entrez.AssemblyDB == "" {
		c.Entrez.AssemblyDB = defaultAssemblyDB
	}
	if c.Entrez.MaxRecords == 0 {
		c.Entrez.MaxRecords = defaultMaxRecords
	}
	if c.Entrez.TimeoutSeconds == 0 {
		c.Entrez.TimeoutSeconds = defaultEntrezTimeoutSeconds
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.BaseURL = strings.TrimRight(strings.TrimSpace(c.Archive.BaseURL), "/")
	if c.Archive.BaseURL == "" {
		c.Archive.BaseURL = defaultArchiveBaseURL
	}
	c.Archive.Layout = strings.ToLower(strings.TrimSpace(c.Archive.Layout))
	if c.Archive.Layout == "" {
		c.Archive.Layout = defaultArchiveLayout
	}
	if c.Archive.TimeoutSeconds == 0 {
		c.Archive.TimeoutSeconds = defaultArchiveTimeout
	}
}

func (c *Config) normalizeOutput() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath == "" {
		return nil
	}
	var err error
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
