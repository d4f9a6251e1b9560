// Command crmmigrate migrates clients and their devis from a legacy CRM SQL
// export into the PostgreSQL database of the new CRM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/JonMunkholm/crmmigrate/internal/config"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
	"github.com/JonMunkholm/crmmigrate/internal/migrate"
	"github.com/JonMunkholm/crmmigrate/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Global flags
var (
	envFile     string
	clientsFile string
	devisFile   string
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "crmmigrate",
	Short: "Migrate clients and devis from a legacy CRM export",
	Long: `crmmigrate loads a MySQL export of the legacy CRM into the new database.

Configuration comes from the environment (and an optional .env file).
DATABASE_URL is required; see MIGRATE_* variables for the rest.

Examples:
  crmmigrate run                               # wipe, then import referenced clients and all devis
  crmmigrate run --clients c.sql --devis d.sql # override export paths
  crmmigrate run --dry-run                     # simulate against an in-memory store
  crmmigrate clients                           # import every client, no wipe
  crmmigrate devis                             # import devis against existing clients, no wipe
  crmmigrate check                             # print migrated row counts`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	rootCmd.PersistentFlags().StringVar(&clientsFile, "clients", "", "Clients export path (overrides MIGRATE_CLIENTS_FILE)")
	rootCmd.PersistentFlags().StringVar(&devisFile, "devis", "", "Devis export path (overrides MIGRATE_DEVIS_FILE)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Run against an in-memory store instead of the database")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(devisCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if kind := migrate.Classify(err); kind.Fatal() {
			fmt.Fprintln(os.Stderr, migrate.Describe(kind))
		}
		os.Exit(1)
	}
}

// session is the state shared by every subcommand.
type session struct {
	ctx   context.Context
	cfg   *config.Config
	store store.Store
	close func()
}

func (s *session) loader() *migrate.Loader {
	return migrate.NewLoader(s.store, migrate.Options{
		CountryCode:       s.cfg.Migrate.CountryCode,
		DefaultClientName: s.cfg.Migrate.DefaultClientName,
		ProgressEvery:     s.cfg.Migrate.ProgressEvery,
		RequireOverlap:    s.cfg.Migrate.RequireOverlap,
	})
}

// open loads configuration, sets up logging and connects to the store.
func open(cmd *cobra.Command) (*session, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var opts []config.Option
	if dryRun {
		opts = append(opts, config.Offline())
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if clientsFile != "" {
		cfg.Migrate.ClientsFile = clientsFile
	}
	if devisFile != "" {
		cfg.Migrate.DevisFile = devisFile
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := logging.WithRunID(cmd.Context(), uuid.NewString())
	log := logging.FromContext(ctx)
	log.Info("configuration loaded", "config", cfg.String(), "dry_run", dryRun)

	if dryRun {
		mem := store.NewMemory()
		mem.AddCountry(cfg.Migrate.CountryCode)
		return &session{ctx: ctx, cfg: cfg, store: mem, close: func() {}}, nil
	}

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &session{ctx: ctx, cfg: cfg, store: store.NewPostgres(pool), close: pool.Close}, nil
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log := logging.FromContext(ctx)
	if u, err := url.Parse(cfg.URL); err == nil {
		log.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		log.Info("connected to database")
	}
	return pool, nil
}
