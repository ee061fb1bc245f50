package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Zuo-Peng/tavern-chat/internal/config"
	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/Zuo-Peng/tavern-chat/internal/parse"
	"github.com/spf13/cobra"
)

var version = "dev"

// cfg is loaded before any subcommand runs.
var cfg *config.Config

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "tvc",
		Short:         "Tavern Chat - convert, index and search SillyTavern chat logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgPath != "" {
				cfg, err = config.LoadFrom(cfgPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.config/tvc/config.toml)")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// convertOptions builds conversion options from the loaded config.
func convertOptions() (parse.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return parse.Options{}, err
	}
	return parse.Options{
		Strict:            cfg.Convert.Strict,
		RequireCreateDate: cfg.Convert.RequireCreateDate,
		Location:          loc,
		Logger:            slog.Default(),
	}, nil
}

func openDB() (*index.DB, error) {
	db, err := index.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// refreshIndex brings the index up to date before a query. Failures are
// logged; a stale index is still searchable.
func refreshIndex(ctx context.Context, db *index.DB) {
	opts, err := convertOptions()
	if err != nil {
		slog.Warn("index refresh skipped", "error", err)
		return
	}
	stats, err := index.IndexAll(ctx, db, cfg.ChatsRoot, index.Options{
		Convert: opts,
		Workers: cfg.Index.Workers,
		Logger:  slog.Default(),
	})
	if err != nil {
		slog.Warn("index refresh failed", "error", err)
		return
	}
	slog.Debug("index refreshed", "stats", stats.String())
}
