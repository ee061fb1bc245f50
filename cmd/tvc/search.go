package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Zuo-Peng/tavern-chat/internal/search"
	"github.com/Zuo-Peng/tavern-chat/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeRole(role, name string) string {
	switch role {
	case "user":
		return sColorBlue + name + sColorReset
	case "char":
		return sColorGreen + name + sColorReset
	default:
		return sColorDim + name + sColorReset
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

// flatten makes a value safe for one TSV field.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func searchCmd() *cobra.Command {
	var character, role, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed chats",
		Long: `Search indexed messages using FTS5. Output is TSV for fzf integration:
  chatKey, fileLine, updatedAt, speaker, summary, snippet

Recommended shell function (add to .zshrc):
  tvcf() {
    tvc search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'tvc preview {1} --hit {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --preview-debounce=150 \
      --bind 'enter:execute(tvc open {1} --line {2})'
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			// Auto-update index before searching
			refreshIndex(cmd.Context(), db)

			opts := search.Options{
				Character: character,
				Role:      role,
				Since:     since,
				Limit:     limit,
			}

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(db, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				// first two fields (chatKey, fileLine) stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s%s%s\t%s\t%s\t%s\n",
					r.ChatKey,
					r.FileLine,
					sColorDim, r.UpdatedAt, sColorReset,
					colorizeRole(r.Role, r.Name),
					flatten(r.Summary),
					colorizeSnippet(flatten(r.Snippet)),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&character, "character", "", "Filter by character directory")
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/char/system)")
	cmd.Flags().StringVar(&since, "since", "", "Filter chats updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}
