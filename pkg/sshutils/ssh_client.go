package sshutils

import (
	"fmt"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHClientWrapper adapts *ssh.Client to the SSHClienter interface.
type SSHClientWrapper struct {
	Client *ssh.Client
}

func (w *SSHClientWrapper) NewShellChannel() (ShellChanneler, error) {
	if w.Client == nil {
		return nil, fmt.Errorf("SSH client not connected")
	}
	return openShellChannel(w.Client)
}

func (w *SSHClientWrapper) NewSFTPSession() (SFTPSessioner, error) {
	if w.Client == nil {
		return nil, fmt.Errorf("SSH client not connected")
	}
	client, err := sftp.NewClient(w.Client)
	if err != nil {
		return nil, fmt.Errorf("failed to open SFTP session: %w", err)
	}
	return &SFTPSession{client: client}, nil
}

func (w *SSHClientWrapper) Close() error {
	if w.Client == nil {
		return nil
	}
	return w.Client.Close()
}
