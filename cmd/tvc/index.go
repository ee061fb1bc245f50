package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	var workers int
	var watch bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan and index every chat under the chats root",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			opts, err := convertOptions()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Index.Workers
			}

			iopts := index.Options{
				Convert: opts,
				Workers: workers,
				Logger:  slog.Default(),
			}

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.ChatsRoot)

			stats, err := index.IndexAll(cmd.Context(), db, cfg.ChatsRoot, iopts)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			if !watch {
				return nil
			}

			fmt.Fprintf(os.Stderr, "Watching for changes, Ctrl-C to stop\n")
			return index.Watch(cmd.Context(), db, cfg.ChatsRoot, iopts, func(s index.Stats, err error) {
				if err == nil && (s.Updated > 0 || s.Pruned > 0) {
					fmt.Fprintf(os.Stderr, "Reindexed. %s\n", s)
				}
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel conversions (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and reindex when chat files change")

	return cmd
}
