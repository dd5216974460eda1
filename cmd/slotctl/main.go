package main

import (
	"fmt"
	"os"

	"pitchup/internal/config"
	"pitchup/internal/database"
	"pitchup/internal/logger"
	"pitchup/internal/repository"
	"pitchup/internal/search"
	"pitchup/internal/service"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "slotctl",
		Short:         "Operator tooling for the PitchUp booking database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			*cfg = *loaded
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	root.AddCommand(migrateCmd(cfg))
	root.AddCommand(seedCmd(cfg))
	root.AddCommand(reclaimCmd(cfg))
	root.AddCommand(reindexCmd(cfg))
	root.AddCommand(venueCmd(cfg))
	root.AddCommand(userCmd(cfg))

	return root
}

// env is what every command needs: a migrated database and the services over it.
type env struct {
	db       *database.DB
	repos    *repository.Repositories
	index    *search.ElasticsearchClient
	services *service.Services
}

func connect(cfg *config.Config, withIndex bool) (*env, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	e := &env{db: db, repos: repository.NewRepositories(db)}

	var index service.VenueIndex
	if withIndex {
		if !cfg.Elasticsearch.Enabled() {
			db.Close()
			return nil, fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		e.index, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
		}
		index = e.index
	}

	// Operator runs publish no events and open no payment sessions.
	e.services = service.NewServices(e.repos, nil, index, nil, nil, service.NewPolicy(cfg.Booking, cfg.Payment.Currency))

	return e, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		logger.Get().Error("Error closing database connection", "error", err)
	}
}
