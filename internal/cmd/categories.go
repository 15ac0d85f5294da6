package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overshare-io/overshare/internal/taxonomy"
)

var categoriesJSON bool

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the privacy-risk categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "cli.categories")
		defer span.End()

		if categoriesJSON {
			type entry struct {
				Name        taxonomy.Category `json:"name"`
				Explanation string            `json:"explanation"`
				Color       string            `json:"color"`
			}
			entries := make([]entry, 0, len(taxonomy.All()))
			for _, c := range taxonomy.All() {
				entries = append(entries, entry{c, taxonomy.DefaultExplanation(c), taxonomy.Color(c)})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		for _, c := range taxonomy.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", c, taxonomy.DefaultExplanation(c))
		}
		return nil
	},
}

func init() {
	categoriesCmd.Flags().BoolVar(&categoriesJSON, "json", false, "emit categories as JSON")
	rootCmd.AddCommand(categoriesCmd)
}
