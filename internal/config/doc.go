// Package config loads, normalizes, and validates genomefetch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NCBI_EMAIL. The Config type centralizes every knob the CLI and pipeline
// need: the E-utilities endpoint and contact identity, the genome archive
// root and layout, the output directory, logging, and metrics export.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
