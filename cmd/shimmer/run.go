package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shimmer-term/shimmer/history"
)

func newRunCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run an interactive line-editing session against this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cfgDir, prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "$ ", "prompt text shown before each line")
	return cmd
}

// runInteractive drives the editor loop directly against this process's
// own stdin/stdout, for exercising the line editor on a development
// machine without a cmd.exe host to inject into.
func runInteractive(cfgDir, prompt string) error {
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("shimmer: creating cfgdir: %w", err)
	}

	r, err := buildRig(cfgDir, newANSIScroller(os.Stdout))
	if err != nil {
		return err
	}
	defer r.lua.Close()
	defer r.store.Flush(true)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("shimmer: stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("shimmer: entering raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}
	r.loop.Resize(cols, rows)

	quoteMode := quoteModeFromSetting(r.reg.String("history.expand_mode"))

	for {
		r.loop.BeginLine(prompt)
		line, eof, err := r.loop.Run(os.Stdin, os.Stdout)
		r.loop.EndLine()
		if err != nil {
			return err
		}
		if eof {
			fmt.Fprintln(os.Stdout)
			return nil
		}

		expanded, result, _ := r.store.Expand(line, line, quoteMode)
		if result == history.ExpandOK || result == history.ExpandPrint {
			line = expanded
		}
		if line != "" {
			r.store.Add(line)
		}
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, line)
	}
}
