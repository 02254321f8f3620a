package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var flags fetchFlags

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "genomefetch <search_term> <email>",
		Short: "Download NCBI genomes in GenBank format",
		Long: `Searches the NCBI BioProject database for an organism, cross-references
the matching projects with the Assembly database, downloads every assembly
from the NCBI genome archive and writes the validated records as
<accession>_<name>.gbk files.

The email is sent with every E-utilities request; NCBI requires it. It may
also come from entrez.email in the config file or NCBI_EMAIL.`,
		Example: `  genomefetch "Aspergillus niger" you@example.org
  genomefetch Fusarium you@example.org -n 50 --only-annotated --yes`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runFetch(cmd, ctx, &flags, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")

	fs := rootCmd.Flags()
	fs.IntVarP(&flags.numRecords, "num-records", "n", 1000, "Maximum number of BioProject records to retrieve")
	fs.BoolVar(&flags.onlyAnnotated, "only-annotated", false, "Only fetch genomes with protein annotation")
	fs.BoolVarP(&flags.yes, "yes", "y", false, "Continue without asking for confirmation")
	fs.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for downloads and GenBank output (default from output.dir)")
	fs.BoolVar(&flags.keepTemp, "keep-temp", false, "Keep gi_list.tmp and results.xml after the run")
	fs.BoolVar(&flags.json, "json", false, "Print the run report as JSON")

	// --num_records and --only_annotated are accepted as spelled by older scripts.
	rootCmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
