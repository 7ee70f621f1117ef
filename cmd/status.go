package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-agency collection and analysis counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stats, err := st.AgencyStats(ctx)
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "AGENCY\tTOTAL\tANALYZED\tLAST PUBLISHED")
		for _, s := range stats {
			last := "-"
			if s.LastPublishedAt != nil {
				last = s.LastPublishedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Agency, s.Total, s.Analyzed, last)
		}
		if len(stats) == 0 {
			fmt.Fprintln(os.Stderr, "no articles stored yet")
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit stats as JSON")
	rootCmd.AddCommand(statusCmd)
}
