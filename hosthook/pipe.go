//go:build windows

package hosthook

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/golang/glog"
)

// PipeName returns the named pipe path a runtime injected into pid
// listens on, so a launcher process can reach it without a separate
// discovery step.
func PipeName(pid uint32) string {
	return fmt.Sprintf(`\\.\pipe\shimmer-%d`, pid)
}

// ServePipe listens on PipeName(pid) and drives one editor.Loop session
// per client connection over it, exactly the way a real console session
// is driven over the ReadConsoleW/WriteConsoleW hooks — the surface a
// test harness dials into to simulate the hook path without a real
// cmd.exe host process to inject into.
func (r *Runtime) ServePipe(pid uint32) error {
	ln, err := winio.ListenPipe(PipeName(pid), nil)
	if err != nil {
		return fmt.Errorf("hosthook: listening on %s: %w", PipeName(pid), err)
	}
	r.mu.Lock()
	r.pipeListener = ln
	r.mu.Unlock()
	go r.acceptPipeConns(ln)
	return nil
}

func (r *Runtime) acceptPipeConns(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go r.servePipeConn(conn)
	}
}

func (r *Runtime) servePipeConn(conn net.Conn) {
	defer conn.Close()
	for {
		r.loop.BeginLine(r.promptForPipe())
		_, eof, err := r.loop.Run(conn, conn)
		r.loop.EndLine()
		if err != nil {
			glog.V(1).Infof("hosthook: pipe session ended: %v", err)
			return
		}
		if eof {
			return
		}
	}
}

func (r *Runtime) promptForPipe() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.havePrompt {
		return r.prompt
	}
	return "$ "
}
