package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/adapter/storage"
	"github.com/rl1809/inventory-api/internal/app"
	"github.com/rl1809/inventory-api/internal/config"
	"github.com/rl1809/inventory-api/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "inventory-api",
		Short:        "Inventory tracking HTTP and gRPC API",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				log.Error("failed to start", zap.Error(err))
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the inventory tables in MySQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.Store.Driver != config.DriverMySQL {
				return fmt.Errorf("migrate needs the mysql driver, got %q", cfg.Store.Driver)
			}

			ctx := cmd.Context()
			db, err := storage.OpenMySQL(ctx, cfg.Store.DSN, storage.MySQLOptions{MaxOpenConns: 1, MaxIdleConns: 1})
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.NewMySQLGateway(db).Migrate(ctx); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "inventory-api %s (%s)\n", version, commit)
		},
	}
}

func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
