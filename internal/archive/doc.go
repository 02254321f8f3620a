// Package archive downloads compressed GenBank files from the NCBI genomes
// archive.
//
// The transport is picked from the archive base URL: ftp:// uses an anonymous
// FTP session that is reused across assemblies, http:// and https:// use a
// plain GET. Missing remote files are reported with the services.ErrNotFound
// marker so callers can tell superseded assemblies apart from transfer
// failures.
package archive
