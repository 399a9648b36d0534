package sshutils

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
)

const (
	shellTerm   = "xterm"
	shellRows   = 24
	shellCols   = 80
	ttyInSpeed  = 14400
	ttyOutSpeed = 14400
)

// ShellChannel is one interactive shell over an ssh session. Reads block on
// the remote pty stream; Close tears the session down, which unblocks any
// reader with an error.
type ShellChannel struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	closeOnce sync.Once
	closeErr  error
}

func openShellChannel(client *ssh.Client) (*ShellChannel, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create shell session: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	// With a pty, remote stderr arrives merged into the same stream.
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: ttyInSpeed,
		ssh.TTY_OP_OSPEED: ttyOutSpeed,
	}
	if err := session.RequestPty(shellTerm, shellRows, shellCols, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to request pty: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start remote shell: %w", err)
	}

	return &ShellChannel{
		session: session,
		stdin:   stdin,
		stdout:  stdout,
	}, nil
}

func (c *ShellChannel) Read(p []byte) (int, error) {
	return c.stdout.Read(p)
}

func (c *ShellChannel) Write(p []byte) (int, error) {
	return c.stdin.Write(p)
}

func (c *ShellChannel) Close() error {
	c.closeOnce.Do(func() {
		_ = c.stdin.Close()
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}
