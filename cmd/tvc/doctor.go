package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/tavern-chat/internal/index"
	"github.com/Zuo-Peng/tavern-chat/internal/scan"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify chats root, DB, FTS5, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("=== Config ===")
			if _, err := cfg.Location(); err != nil {
				fmt.Printf("  Timezone: %s (%s)\n", cfg.Convert.Timezone, failColor.Sprint(err))
			} else {
				fmt.Printf("  Timezone: %s (%s)\n", cfg.Convert.Timezone, okColor.Sprint("OK"))
			}
			fmt.Printf("  Strict: %v  Require create_date: %v  Workers: %d\n",
				cfg.Convert.Strict, cfg.Convert.RequireCreateDate, cfg.Index.Workers)

			fmt.Println("\n=== Chats Root ===")
			checkDir("Chats", cfg.ChatsRoot)

			// scan file counts
			fmt.Println("\n=== File Scan ===")
			chars, err := scan.Characters(cfg.ChatsRoot)
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				files, err := scan.ScanRoot(cfg.ChatsRoot)
				if err != nil {
					fmt.Printf("  scan error: %v\n", err)
				}
				fmt.Printf("  Characters:  %d\n", len(chars))
				fmt.Printf("  JSONL files: %d\n", len(files))
			}

			// check DB
			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Printf("  Status: %s (run 'tvc index' first)\n", failColor.Sprint("NOT FOUND"))
				return nil
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return reportDB(db)
		},
	}
}

func reportDB(db *index.DB) error {
	chatCount, err := db.ChatCount()
	if err != nil {
		return fmt.Errorf("count chats: %w", err)
	}

	msgCount, err := db.MessageCount()
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	fmt.Printf("  Chats:    %d\n", chatCount)
	fmt.Printf("  Messages: %d\n", msgCount)

	// check FTS5
	fmt.Println("\n=== FTS5 ===")
	ftsCount, err := db.FTSCount()
	if err != nil {
		fmt.Printf("  FTS5 error: %s\n", failColor.Sprint(err))
	} else {
		fmt.Printf("  FTS5 entries: %d\n", ftsCount)
		if ftsCount == msgCount {
			fmt.Printf("  Status: %s (synced)\n", okColor.Sprint("OK"))
		} else {
			fmt.Printf("  Status: %s (messages=%d, fts=%d)\n", warnColor.Sprint("MISMATCH"), msgCount, ftsCount)
		}
	}

	// check DB file size
	if info, err := os.Stat(cfg.DBPath); err == nil {
		sizeMB := float64(info.Size()) / 1024 / 1024
		fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
	}

	return nil
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (%s)\n", name, path, failColor.Sprint("NOT FOUND"))
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (%s)\n", name, path, failColor.Sprint("NOT A DIRECTORY"))
	} else {
		fmt.Printf("  %s: %s (%s)\n", name, path, okColor.Sprint("OK"))
	}
}
