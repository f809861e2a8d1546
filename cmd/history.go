package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		term, _ := cmd.Flags().GetString("term")
		region, _ := cmd.Flags().GetString("region")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := st.ListSearches(ctx, store.SearchFilter{
			Term:   term,
			Region: region,
			Status: model.Status(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "history")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No searches found.")
			return nil
		}

		formatHistory(os.Stdout, records)
		return nil
	},
}

func formatHistory(w io.Writer, records []model.SearchRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTERM\tREGION\tSTATUS\tRESULTS\tID")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Term, 40),
			r.Region,
			r.Status,
			r.ResultCount,
			r.ID,
		)
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func init() {
	historyCmd.Flags().String("term", "", "filter by search term")
	historyCmd.Flags().String("region", "", "filter by region")
	historyCmd.Flags().String("status", "", "filter by status (ok, partial, error)")
	historyCmd.Flags().Int("limit", 20, "max searches to list")
	rootCmd.AddCommand(historyCmd)
}
