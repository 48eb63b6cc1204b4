package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"geostream/config"
	"geostream/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cliVersion = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "geostream",
		Short:        "Anonymous, geo-tagged, self-expiring photo and video posts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "geostream.yaml", "path to the YAML config file")

	loadConfig := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		logger, err := service.NewLogger(cfg.Log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build logger: %w", err)
		}
		return cfg, logger, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig()
				if err != nil {
					return err
				}
				defer logger.Sync()

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return service.RunAppServer(ctx, cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove expired posts once and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := loadConfig()
				if err != nil {
					return err
				}
				defer logger.Sync()

				app, err := service.NewApp(cfg, logger)
				if err != nil {
					return err
				}
				defer app.Close()

				n, err := app.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired posts\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "geostream version %s\n", cliVersion)
			},
		},
		newDBCmd(loadConfig),
	)

	return root
}

func newDBCmd(loadConfig func() (*config.Config, *zap.Logger, error)) *cobra.Command {
	var yes bool
	var backupDir string

	// withMaintenance runs fn against the configured on-disk database.
	withMaintenance := func(cmd *cobra.Command, fn func(m *service.Maintenance) error) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.Storage.InMemory {
			return fmt.Errorf("storage.in_memory is set; there is no database on disk")
		}
		return fn(&service.Maintenance{
			DBPath: cfg.Storage.Path,
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
			Logger: logger,
			Yes:    yes,
		})
	}

	db := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	db.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	backup := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMaintenance(cmd, func(m *service.Maintenance) error {
				_, err := m.Backup(backupDir)
				return err
			})
		},
	}
	backup.Flags().StringVar(&backupDir, "dir", "data/backups", "directory to write the backup to")

	db.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Initialize a new empty database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMaintenance(cmd, func(m *service.Maintenance) error {
					return m.Init()
				})
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMaintenance(cmd, func(m *service.Maintenance) error {
					return m.Clean()
				})
			},
		},
		backup,
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Restore the database from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMaintenance(cmd, func(m *service.Maintenance) error {
					return m.Restore(args[0])
				})
			},
		},
	)
	return db
}
