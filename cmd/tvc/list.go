package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/tavern-chat/internal/search"
	"github.com/Zuo-Peng/tavern-chat/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func listCmd() *cobra.Command {
	var character, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all chats sorted by update time",
		Long:  `Opens a TUI panel showing all indexed chats sorted by update time (newest first). Type to search message text.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			refreshIndex(cmd.Context(), db)

			opts := search.Options{
				Character: character,
				Since:     since,
				Limit:     limit,
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.RunList(db, opts)
			}

			results, err := search.ListAll(db, opts)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s\t%s\t%s\t%s\n", r.ChatKey, r.UpdatedAt, r.Snippet, r.Summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&character, "character", "", "Only chats of this character directory")
	cmd.Flags().StringVar(&since, "since", "", "Filter chats updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (0 = no limit)")

	return cmd
}
