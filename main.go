package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/adapters/postgres"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/app"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/alias"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/config"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/errors"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/subject"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ui"
)

// initDatabase connects the optional run ledger database
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "failed to prepare run ledger schema")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var ledger ports.RunLedgerPort
	if cfg.Database.Enabled {
		db, err := initDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		ledger = postgres.NewRunLedger(db)
	} else {
		log.Println("DATABASE_URL not set, run ledger disabled")
	}

	loader := &library.Loader{}
	var aliasMap map[string]string
	if cfg.Paths.AliasFile != "" {
		entries, err := alias.ParseFile(cfg.Paths.AliasFile)
		if err != nil {
			log.Fatalf("Failed to read alias file: %v", err)
		}
		aliasMap, err = alias.BuildAliasMap(entries)
		if err != nil {
			log.Fatalf("Failed to build alias map: %v", err)
		}
		loader.CanonicalAliases = alias.BuildCanonicalAliases(entries)
	}

	resolver := &subject.Resolver{Suggester: &subject.LevenshteinSuggester{}}
	converter := app.NewConverterService(loader, resolver, ledger,
		cfg.Paths.TemplateDir, cfg.Paths.GlobalTemplateDir)
	converter.SetAliasMap(aliasMap)

	server := ui.NewServer(cfg, converter, loader, ledger)
	log.Printf("Starting conversion server on port %s", cfg.Server.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
