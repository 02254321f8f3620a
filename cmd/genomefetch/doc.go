// Package main implements the genomefetch command line.
//
// The root command searches the NCBI BioProject database for an organism,
// asks for confirmation, downloads the matching assemblies from the genome
// archive, and rewrites each validated archive as a GenBank file in the
// output directory. The config and check subcommands manage the TOML
// configuration and check the remote services before a run.
package main
