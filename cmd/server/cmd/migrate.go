package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, pool, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := store.ApplyMigrations(cmd.Context(), pool)
		if err != nil {
			return errors.Wrap(err, "migration failed")
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), subtle("database is up to date"))
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", success("applied"), name)
		}
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations that have not been applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, pool, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		pending, err := store.PendingMigrations(cmd.Context(), pool)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), subtle("no pending migrations"))
			return nil
		}
		for _, name := range pending {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", warning("pending"), name)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}
