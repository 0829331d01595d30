package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/tally/internal/services/ingest"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the built-in sample datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := ingest.Samples()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range samples {
			fmt.Fprintf(out, "%-20s %-30s %d rows  %s\n", s.Name, s.Title, len(s.Rows), s.Description)
		}
		return nil
	},
}
