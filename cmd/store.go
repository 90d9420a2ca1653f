package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Report ledger maintenance",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the report ledger schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s store migrated\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	storeCmd.AddCommand(storeMigrateCmd)
	rootCmd.AddCommand(storeCmd)
}
