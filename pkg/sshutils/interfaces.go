package sshutils

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// SSHDialer abstracts the transport dial so the session supervisor can be
// tested without a network.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

// SSHClienter is one authenticated transport. Shell channels and SFTP
// sessions are multiplexed over it and may coexist.
type SSHClienter interface {
	NewShellChannel() (ShellChanneler, error)
	NewSFTPSession() (SFTPSessioner, error)
	Close() error
}

// ShellChanneler is one interactive shell stream. Read blocks until output
// arrives or the channel is closed; Close unblocks any pending Read.
type ShellChanneler interface {
	io.Reader
	io.Writer
	Close() error
}

// SFTPSessioner is a short-lived secondary file-transfer session over an
// existing transport.
type SFTPSessioner interface {
	Put(localPath, remotePath string) error
	Get(remotePath, localPath string) error
	Close() error
}
