// Package entrez talks to the NCBI E-utilities endpoints used by genomefetch:
// esearch for BioProject matches, elink for project to assembly links, and
// esummary for assembly metadata.
//
// Every request carries the caller's contact email and tool name. Responses
// are decoded with encoding/xml; the ESummary payload is returned raw so the
// pipeline can persist it before parsing it with ParseSummaries.
package entrez
