// Package preflight provides readiness checks for the output directory and
// the NCBI services genomefetch depends on.
//
// The fetch command runs CheckDirectoryAccess on the output directory before
// taking the run lock. The "genomefetch check" command runs RunAll, which adds
// reachability checks for the E-utilities endpoint and the genome archive.
package preflight
