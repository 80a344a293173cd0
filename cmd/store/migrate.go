package main

import (
	"github.com/fjod/go_store/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres and catalog schema migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level)

	repo, err := openRepository(cfg, true)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info("database migrations completed", "db", cfg.DB.Name)

	products, err := openCatalog(cfg, true)
	if err != nil {
		return err
	}
	defer products.Close()
	log.Info("catalog migrations completed", "path", cfg.Catalog.Path)
	return nil
}
