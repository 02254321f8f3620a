// Package services defines shared utilities consumed by the pipeline steps and
// the external NCBI integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names, and assembly accessions
//     for logging.
//   - Structured error markers plus the Wrap helper that let the pipeline turn
//     per-assembly failures into outcomes (not found, invalid, failed) while
//     fatal errors keep their component context.
package services
