package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/pricing"
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Show the cross-location price model built from the newest snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "prices", false)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Service.PriceModel(ctx)
		if err != nil {
			return eris.Wrap(err, "prices")
		}

		category, _ := cmd.Flags().GetString("category")
		items := snap.Model.ByCategory(category)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"source":     snap.Source,
				"items":      items,
				"locations":  snap.Model.Locations,
				"categories": pricing.Categories(snap.Model.Items),
			})
		}

		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "snapshot %s: %d items, %d locations\n",
			snap.Source, len(items), len(snap.Model.Locations))
		formatPriceTable(cmd.OutOrStdout(), items, snap.Model.Locations)
		return nil
	},
}

// formatPriceTable writes one row per item and one column per location.
func formatPriceTable(out io.Writer, items []pricing.Item, locations []pricing.LocationInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprint(w, "ITEM\tCATEGORY")
	for _, loc := range locations {
		_, _ = fmt.Fprintf(w, "\t%s", loc.DisplayName)
	}
	_, _ = fmt.Fprintln(w)

	for _, it := range items {
		name := it.Name
		if it.FriendlyName != "" {
			name = it.FriendlyName
		}
		_, _ = fmt.Fprintf(w, "%s\t%s", name, pricing.CategoryLabel(it.Category))
		for _, loc := range locations {
			cell := "-"
			if p, ok := it.Price(loc.ID); ok {
				cell = strconv.FormatFloat(p, 'f', 2, 64)
			}
			_, _ = fmt.Fprintf(w, "\t%s", cell)
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func init() {
	pricesCmd.Flags().String("category", "", "only show items in this category")
	pricesCmd.Flags().Bool("json", false, "print the model as JSON")
	rootCmd.AddCommand(pricesCmd)
}
