// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridian-labs/passkey-server/internal/config"
	"github.com/veridian-labs/passkey-server/internal/rest"
	"github.com/veridian-labs/passkey-server/pkg/logging"
	"github.com/veridian-labs/passkey-server/pkg/metrics"
	"github.com/veridian-labs/passkey-server/pkg/passkey"
	"github.com/veridian-labs/passkey-server/pkg/storage/jsonfile"
)

// inventoryInterval is how often the metrics collector samples the
// user store.
const inventoryInterval = 30 * time.Second

// serveCmd starts the passkey server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the passkey server",
	Long: `Start the HTTP server hosting the passkey ceremony API, the demo
page, and the health and metrics endpoints.

Configuration is read from the --config file if given, falling back to
the PASSKEY_CONFIG environment variable and then built-in localhost
defaults. Individual settings can be overridden with PASSKEY_* environment
variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	path := configPath
	if path == "" {
		path = os.Getenv("PASSKEY_CONFIG")
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLoggerWithOptions(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	userStore, err := buildUserStore(cfg, logger)
	if err != nil {
		return err
	}

	issuer, err := passkey.NewJWTIssuer(
		[]byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.Session.Validity.Std())
	if err != nil {
		return fmt.Errorf("failed to create session issuer: %w", err)
	}
	if cfg.Session.Secret == "" {
		logger.Warn("no session secret configured, sessions will not survive a restart")
	}

	service, err := passkey.NewService(passkey.ServiceParams{
		Config: &passkey.Config{
			RPID:        cfg.RelyingParty.ID,
			RPName:      cfg.RelyingParty.Name,
			RPOrigins:   cfg.RelyingParty.Origins,
			Timeout:     cfg.RelyingParty.Timeout.Std(),
			Attestation: cfg.RelyingParty.Attestation,
			Mode:        cfg.Policy.Mode,
			LockMode:    cfg.Policy.LockMode,
		},
		UserStore:      userStore,
		ChallengeStore: passkey.NewMemoryChallengeStore(),
		SessionIssuer:  issuer,
	})
	if err != nil {
		return fmt.Errorf("failed to create passkey service: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	server, err := rest.NewServer(rest.Params{
		Config:  cfg,
		Service: service,
		Logger:  logger,
		Version: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	shutdownCtx := setupSignalHandler(logger)

	var collector *metrics.InventoryCollector
	if cfg.Metrics.Enabled {
		collector = metrics.StartInventoryCollector(shutdownCtx, userStore, inventoryInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-shutdownCtx.Done():
	}

	if collector != nil {
		collector.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// buildUserStore creates the user store named by the config.
func buildUserStore(cfg *config.Config, logger *logging.Logger) (passkey.UserStore, error) {
	switch cfg.Storage.Backend {
	case "jsonfile":
		store, err := jsonfile.New(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open user store: %w", err)
		}
		logger.Info("using jsonfile user store", "path", cfg.Storage.Path)
		return store, nil
	default:
		logger.Info("using in-memory user store")
		return passkey.NewMemoryUserStore(), nil
	}
}

// setupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
func setupSignalHandler(logger *logging.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return ctx
}
