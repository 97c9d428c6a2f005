package transport

import (
	"errors"

	"golang.org/x/crypto/ssh"
)

// ErrShellNotRequested indicates the SSH client closed the request stream without asking for a shell.
var ErrShellNotRequested = errors.New("shell request not received before channel closed")

// AcceptShell drains channel requests until the client asks for a shell, then
// keeps answering the rest in the background. The channel can then be wrapped
// with NewStreamConn.
func AcceptShell(requests <-chan *ssh.Request) error {
	for req := range requests {
		if !handleRequest(req) {
			continue
		}

		go func() {
			for req := range requests {
				handleRequest(req)
			}
		}()
		return nil
	}
	return ErrShellNotRequested
}

// handleRequest answers one channel request and reports whether it was the shell request.
// PTYs are refused so clients stay in line mode and send plain "\n"-terminated lines.
func handleRequest(req *ssh.Request) bool {
	switch req.Type {
	case "shell":
		_ = req.Reply(true, nil)
		return true
	case "env", "window-change", "signal":
		_ = req.Reply(true, nil)
	default:
		_ = req.Reply(false, nil)
	}
	return false
}
