package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [track name...]",
	Short: "Show how track names resolve to course identifiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver := newResolver(cfg, appLog)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INPUT\tCOURSE ID\tKEY\tMETHOD\tSCORE")
		for _, name := range args {
			res, ok := resolver.ResolveDetailed(name)
			if !ok {
				fmt.Fprintf(w, "%s\t-\t-\tnot_found\t-\n", name)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", name, res.CourseID, res.Key, res.Method, res.Score)
		}
		return w.Flush()
	},
}
