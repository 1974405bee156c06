//go:build windows

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/spf13/cobra"

	"github.com/shimmer-term/shimmer/hosthook"
	"github.com/shimmer-term/shimmer/procinject"
)

// defaultBootstrapExport is the name the runtime DLL exports for its
// entry point: a parameterless call that builds a hosthook.Runtime
// around the DLL's own editor.Loop, installs the trap hook, and starts
// serving hosthook.PipeName(os.Getpid()) for this launcher to dial.
const defaultBootstrapExport = "ShimmerBootstrap"

func newInjectCmd() *cobra.Command {
	var pid int
	var dllPath string
	var exportName string
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "inject the runtime DLL into a running cmd.exe and attach over its named pipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid == 0 {
				return fmt.Errorf("shimmer: --pid is required")
			}
			if dllPath == "" {
				return fmt.Errorf("shimmer: --dll is required")
			}
			return runInject(uint32(pid), dllPath, exportName)
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "target cmd.exe process id")
	cmd.Flags().StringVar(&dllPath, "dll", "", "path to the built runtime DLL")
	cmd.Flags().StringVar(&exportName, "export", defaultBootstrapExport, "exported bootstrap function name")
	return cmd
}

// runInject loads dllPath into pid, calls its bootstrap export to start
// the injected hosthook.Runtime and its named pipe server, then dials
// that pipe and relays this process's own stdin/stdout to it — the
// launcher side of the same relay cmd/shimmer testbed --hook exercises
// locally without a real target process.
func runInject(pid uint32, dllPath, exportName string) error {
	proc, err := procinject.Open(pid)
	if err != nil {
		return fmt.Errorf("shimmer: opening pid %d: %w", pid, err)
	}
	defer proc.Close()

	if _, err := proc.CallExport(dllPath, exportName, 0); err != nil {
		return fmt.Errorf("shimmer: bootstrapping runtime: %w", err)
	}

	pipeName := hosthook.PipeName(pid)
	var conn io.ReadWriteCloser
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err = winio.DialPipe(pipeName, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("shimmer: dialing %s: %w", pipeName, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	defer conn.Close()

	go io.Copy(conn, bufio.NewReader(os.Stdin))
	_, err = io.Copy(os.Stdout, conn)
	return err
}
