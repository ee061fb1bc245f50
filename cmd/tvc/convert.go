package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Zuo-Peng/tavern-chat/internal/parse"
	"github.com/Zuo-Peng/tavern-chat/internal/scan"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func convertCmd() *cobra.Command {
	var report, pretty bool

	cmd := &cobra.Command{
		Use:   "convert <character> <file>",
		Short: "Convert a chat file to a JSON document on stdout",
		Long: `Locates <chats_root>/<character>/<file>.jsonl, converts it and writes the
resulting document as JSON. Message lines that fail to map are dropped
unless --strict is given; --report lists them on stderr.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fi, err := scan.Lookup(cfg.ChatsRoot, args[0], args[1])
			if err != nil {
				return err
			}

			opts, err := convertOptions()
			if err != nil {
				return err
			}
			overrideBool(cmd, "strict", &opts.Strict)
			overrideBool(cmd, "require-create-date", &opts.RequireCreateDate)

			var dropped []*parse.LineError
			opts.OnLineError = func(le *parse.LineError) { dropped = append(dropped, le) }

			doc, err := parse.ConvertFile(fi.Path, opts)
			if err != nil {
				return err
			}

			if report {
				warn := color.New(color.FgYellow)
				for _, le := range dropped {
					fmt.Fprintf(os.Stderr, "%s %s\n", warn.Sprint("dropped"), le)
				}
				fmt.Fprintf(os.Stderr, "%d messages, %d dropped\n", len(doc.Messages), len(dropped))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(doc)
		},
	}

	cmd.Flags().Bool("strict", false, "Fail on the first message line that cannot be mapped")
	cmd.Flags().Bool("require-create-date", false, "Fail when the header has no create_date")
	cmd.Flags().BoolVar(&report, "report", false, "List dropped lines on stderr")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")

	return cmd
}

// overrideBool replaces a config value with the flag's, only when the flag
// was given on the command line.
func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if v, err := cmd.Flags().GetBool(name); err == nil {
		*dst = v
	}
}
