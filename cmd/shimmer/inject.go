//go:build !windows

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "inject",
		Short:  "inject the runtime into a running cmd.exe (Windows only)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("shimmer: inject is only supported on Windows")
		},
	}
}
