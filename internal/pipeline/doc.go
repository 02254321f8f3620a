// Package pipeline runs one genome fetch end to end.
//
// A run searches BioProject, asks for confirmation, links the matching
// projects to assemblies, fetches and parses their summaries, downloads each
// assembly's GenBank archive, validates and rewrites the archives, and removes
// intermediate files. Search, link, summary, and workspace failures abort the
// run. Per-genome download and validation problems are recorded as outcomes
// in the returned Report and the run continues.
package pipeline
