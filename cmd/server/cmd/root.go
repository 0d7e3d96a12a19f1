package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/config"
	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/store"
)

var (
	configDir string
	appConfig *config.AppConfig
	log       logger.Logger

	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	subtle  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "lifecard",
	Short: "LifeCard CardDAV server",
	Long: `LifeCard serves contacts and contact groups to CardDAV clients
(Apple Contacts, DAVx5, Thunderbird) from PostgreSQL.

Configuration comes from config.toml, .env and APP_* environment variables.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.toml")
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd, contactCmd, groupCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	appConfig, err = config.New(configDir)
	if err != nil {
		return errors.Wrap(err, "could not load config")
	}
	log = logger.New(appConfig.Config.LoggerConfig())
	return nil
}

// openStore connects to PostgreSQL. The caller closes the returned pool.
func openStore(ctx context.Context) (*store.Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, appConfig.Config.DB.DSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not create db pool")
	}
	st := store.New(pool)
	if err := st.HealthCheck(ctx); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "database unreachable")
	}
	return st, pool, nil
}
