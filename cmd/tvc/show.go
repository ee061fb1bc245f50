package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/tavern-chat/internal/parse"
	"github.com/Zuo-Peng/tavern-chat/internal/render"
	"github.com/Zuo-Peng/tavern-chat/internal/scan"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func showCmd() *cobra.Command {
	var hit, context int
	var query string
	var swipes bool

	cmd := &cobra.Command{
		Use:   "show <character> <file>",
		Short: "Convert a chat file and print it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fi, err := scan.Lookup(cfg.ChatsRoot, args[0], args[1])
			if err != nil {
				return err
			}
			opts, err := convertOptions()
			if err != nil {
				return err
			}
			doc, err := parse.ConvertFile(fi.Path, opts)
			if err != nil {
				return err
			}

			out, _ := render.RenderDocument(doc, render.Options{
				HitLine: hit,
				Context: context,
				Width:   termWidth(),
				Query:   query,
				Swipes:  swipes,
			})
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hit, "hit", -1, "Message line to highlight")
	cmd.Flags().IntVar(&context, "context", -1, "Messages before/after hit to show (-1 = all)")
	cmd.Flags().StringVar(&query, "query", "", "Keywords to highlight")
	cmd.Flags().BoolVar(&swipes, "swipes", false, "List alternative swipes under each message")

	return cmd
}

// termWidth is the stdout width, or 0 (no wrapping) when not a terminal.
func termWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}
