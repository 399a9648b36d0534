package sshutils

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDial is the production dialer. DialCreator is a field so tests can
// substitute the transport without touching the rest of the stack.
type SSHDial struct {
	DialCreator func(network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

func NewSSHDial() *SSHDial {
	return &SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
			client, err := ssh.Dial(network, addr, config)
			if err != nil {
				return nil, err
			}
			return &SSHClientWrapper{Client: client}, nil
		},
	}
}

func (d *SSHDial) Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	return d.DialCreator(network, addr, config)
}

// NewClientConfig builds the ssh client config for one connection attempt.
// Host keys are accepted without verification, matching the accept-any
// policy this tool has always had. That is an explicit simplification and
// not a security guarantee; do not point it at hosts you would not trust a
// first-contact connection to.
func NewClientConfig(user string, auth []ssh.AuthMethod, timeout time.Duration) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         timeout,
	}
}
