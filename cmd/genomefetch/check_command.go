package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"genomefetch/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var email string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the output directory, contact email and NCBI endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if e := strings.TrimSpace(email); e != "" {
				cfg.Entrez.Email = e
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if asJSON {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().StringVar(&email, "email", "", "Contact email to check instead of entrez.email")
	return cmd
}
