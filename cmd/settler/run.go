package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var runJSON bool

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the pass summary as JSON")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single settlement pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfig(); err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.orchestrator.RunPass(cmd.Context())
		if err != nil {
			return fmt.Errorf("settlement pass failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		fmt.Fprintf(out, "Processed %d bets: %d updated, %d pending, %d unmatched, %d errors (%s)\n",
			summary.Processed, summary.Updated, summary.Pending, summary.Unmatched, summary.Errors, summary.Duration)
		return nil
	},
}
