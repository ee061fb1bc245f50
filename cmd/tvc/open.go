package main

import (
	"github.com/Zuo-Peng/tavern-chat/internal/open"
	"github.com/spf13/cobra"
)

func openCmd() *cobra.Command {
	var line int

	cmd := &cobra.Command{
		Use:   "open <chatKey>",
		Short: "Open the original JSONL file in $EDITOR at the message line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenChat(db, args[0], line)
		},
	}

	cmd.Flags().IntVar(&line, "line", -1, "Message line (as printed by search) to jump to")

	return cmd
}
