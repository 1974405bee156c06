package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shimmer-term/shimmer/history"
)

func newTestbedCmd() *cobra.Command {
	var hook bool
	var pty bool
	var prompt string
	cmd := &cobra.Command{
		Use:   "testbed [-- command [args...]]",
		Short: "drive the editor loop non-interactively, or compare against a real console under --pty",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pty {
				return runPtyCompare(args)
			}
			if !hook {
				return fmt.Errorf("shimmer: testbed currently only implements --hook and --pty")
			}
			return runTestbed(cfgDir, prompt)
		},
	}
	cmd.Flags().BoolVar(&hook, "hook", false, "simulate the host-interception hook path: one line editor invocation per line of stdin (the prompt is used as given, untagged)")
	cmd.Flags().BoolVar(&pty, "pty", false, "run `command` under a real pty and log its raw output alongside shimmer's own ecma48 decoding of it, for comparing against shimmer run's output")
	cmd.Flags().StringVar(&prompt, "prompt", "$ ", "prompt text simulating what a real cmd.exe session would have captured from PROMPT")
	return cmd
}

// runTestbed drives the editor loop against os.Stdin/os.Stdout without
// putting the terminal into raw mode, so integration tests can pipe a
// scripted byte stream in and capture the rendered output, exercising
// the same editor.Loop/rlengine/matches/scroller wiring the real hook
// path drives without needing an actual cmd.exe process to inject into.
func runTestbed(cfgDir, prompt string) error {
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("shimmer: creating cfgdir: %w", err)
	}

	r, err := buildRig(cfgDir, newANSIScroller(nil))
	if err != nil {
		return err
	}
	defer r.lua.Close()
	defer r.store.Flush(true)

	r.loop.Resize(80, 24)
	quoteMode := quoteModeFromSetting(r.reg.String("history.expand_mode"))

	for {
		r.loop.BeginLine(prompt)
		line, eof, err := r.loop.Run(os.Stdin, os.Stdout)
		r.loop.EndLine()
		if err != nil {
			return err
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

		if eof {
			return nil
		}
	}
}
