package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/seller-scout/internal/card"
	"github.com/sells-group/seller-scout/internal/model"
	"github.com/sells-group/seller-scout/internal/pipeline"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search listings, rank them, and resolve seller contacts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		region, _ := cmd.Flags().GetString("region")
		format, _ := cmd.Flags().GetString("format")
		query := strings.Join(args, " ")

		if _, _, err := pipeline.Validate(query, region); err != nil {
			return err
		}

		env, err := initApp(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Execute(ctx, query, region)
		if err != nil {
			return err
		}
		return writeResult(os.Stdout, res, format)
	},
}

// writeResult prints res as JSON or as cards in the given style.
func writeResult(w io.Writer, res *model.Result, format string) error {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	f, err := card.New(format, res.Region)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, f.Result(res))
	return err
}

func init() {
	searchCmd.Flags().String("region", "ar", "two-letter marketplace region")
	searchCmd.Flags().String("format", "plain", "output format: plain, markdown, or json")
	rootCmd.AddCommand(searchCmd)
}
