// Package workspace owns the output directory of a fetch run: the run lock,
// the intermediate gi_list.tmp and results.xml files, discovery of downloaded
// archives, and end-of-run cleanup.
package workspace
