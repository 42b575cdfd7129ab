// Command storectl runs maintenance tasks against the shop database.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ecom-service/config"
	"ecom-service/internal/service"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Maintenance commands for the ecom service",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			util.SyncLogger()
		},
	}

	root.AddCommand(
		newMigrateCmd(cfg),
		newImportDevicesCmd(cfg),
		newExportProductsCmd(cfg),
	)
	return root
}

func openStore(cfg *config.Config) (*store.Store, error) {
	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			util.GetLogger().Info("Schema applied")
			return nil
		},
	}
}

func newImportDevicesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import-devices <file>",
		Short: "Import a CSV or XLSX device ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := service.NewDeviceService(db).Upload(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			util.GetLogger().Info("Device ledger imported",
				zap.Int("inserted", result.Inserted),
				zap.Int("failed", result.FailedCount),
				zap.Int("total", result.TotalRows))
			for _, row := range result.FailedRows {
				fmt.Fprintf(cmd.ErrOrStderr(), "row %d: %s\n", row.Row, row.Error)
			}
			return nil
		},
	}
}

func newExportProductsCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-products",
		Short: "Write every product to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			f, err := os.Create(output)
			if err != nil {
				return err
			}

			products := service.NewProductService(db, nil, nil, nil, cfg.Business)
			if err := products.ExportProducts(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			util.GetLogger().Info("Products exported", zap.String("file", output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "products.xlsx", "destination file")
	return cmd
}
