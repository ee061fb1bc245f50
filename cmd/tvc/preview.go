package main

import (
	"fmt"

	"github.com/Zuo-Peng/tavern-chat/internal/render"
	"github.com/spf13/cobra"
)

func previewCmd() *cobra.Command {
	var hit int
	var context int
	var query string

	cmd := &cobra.Command{
		Use:   "preview <chatKey>",
		Short: "Preview an indexed chat with context around a hit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			out, _, err := render.RenderIndexed(db, args[0], render.Options{
				HitLine: hit,
				Context: context,
				Query:   query,
			})
			if err != nil {
				return err
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hit, "hit", -1, "Message line to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Messages before/after hit to show")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")

	return cmd
}
