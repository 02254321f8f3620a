// Package genbank streams records out of GenBank flat files.
//
// The Reader keeps each record's raw text so valid files can be rewritten
// byte-for-byte, and tracks the declared LOCUS length against the bases
// actually present in the ORIGIN block to spot placeholder records.
package genbank
