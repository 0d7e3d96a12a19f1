package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jw6ventures/lifecard/internal/auth"
	"github.com/jw6ventures/lifecard/internal/contacts"
	"github.com/jw6ventures/lifecard/internal/dav"
	httpserver "github.com/jw6ventures/lifecard/internal/http"
	"github.com/jw6ventures/lifecard/internal/store"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the CardDAV server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := appConfig.Config
		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !skipMigrations {
			applied, err := store.ApplyMigrations(ctx, pool)
			if err != nil {
				return errors.Wrap(err, "could not apply migrations")
			}
			for _, name := range applied {
				log.Info().Str("migration", name).Msg("applied migration")
			}
		}

		appConfig.DynamicReload(log)

		authService := auth.NewService(log, st.Users)
		davHandler := dav.NewHandler(log, contacts.NewService(log, st))
		router := httpserver.NewRouter(ctx, cfg, log, st, authService, davHandler)

		srv := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Str("base_url", cfg.BaseURL).Msg("server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return errors.Wrap(err, "server error")
			}
		case <-ctx.Done():
		}
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
}
