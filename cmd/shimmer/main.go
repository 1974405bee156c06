// Command shimmer is the CLI launcher: it installs and drives the line
// editor runtime against cmd.exe, or runs it standalone for development
// and testing on any platform.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cfgDir string

func main() {
	root := &cobra.Command{
		Use:   "shimmer",
		Short: "a Readline-style line editor and host-interception runtime for cmd.exe",
	}

	def, err := defaultCfgDir()
	if err != nil {
		def = ".shimmer"
	}
	root.PersistentFlags().StringVar(&cfgDir, "cfgdir", def, "directory holding settings, history, and scripts")

	root.AddCommand(newRunCmd(), newTestbedCmd(), newInjectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultCfgDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shimmer"), nil
}
