package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/shimmer-term/shimmer/ecma48"
)

// runPtyCompare runs command under a real pty, relaying stdin/stdout the
// way a normal terminal session would, while logging both the raw byte
// stream the pty produced and this repo's own ecma48 decoding of that
// stream to a debug log. Diffing the two against shimmer run's own output
// for the same command is how a developer checks the decoder against
// what a real console actually sent.
func runPtyCompare(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("shimmer: testbed --pty requires a command to run")
	}

	c := exec.Command(command[0], command[1:]...)

	debug, err := os.Create("ptydebug.log")
	if err != nil {
		return fmt.Errorf("shimmer: creating pty debug log: %w", err)
	}
	defer debug.Close()

	ptmx, err := pty.Start(c)
	if err != nil {
		return fmt.Errorf("shimmer: starting pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }() // Best effort.

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		for range ch {
			if err := pty.InheritSize(os.Stdin, ptmx); err != nil {
				fmt.Fprintf(debug, "resize: error resizing pty: %s\n", err)
			}
		}
	}()
	ch <- syscall.SIGWINCH                        // Initial resize.
	defer func() { signal.Stop(ch); close(ch) }() // Cleanup signals when done.

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("shimmer: entering raw mode: %w", err)
	}
	defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }() // Best effort.

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()

	decoder := ecma48.New()
	buf := make([]byte, 4096)
	for {
		nr, errR := ptmx.Read(buf)
		if nr > 0 {
			chunk := buf[:nr]
			fmt.Fprintf(debug, "raw: %q\n", chunk)
			decoder.Feed(chunk, func(code ecma48.Code) {
				fmt.Fprintf(debug, "decoded: kind=%d final=%q raw=%q\n", code.Kind, code.Final, code.Raw)
			})
			if _, errW := os.Stdout.Write(chunk); errW != nil {
				return fmt.Errorf("shimmer: writing stdout: %w", errW)
			}
		}
		if errR != nil {
			if errR == io.EOF {
				decoder.Flush(func(code ecma48.Code) {
					fmt.Fprintf(debug, "decoded: kind=%d final=%q raw=%q\n", code.Kind, code.Final, code.Raw)
				})
				return nil
			}
			return fmt.Errorf("shimmer: reading pty: %w", errR)
		}
	}
}
