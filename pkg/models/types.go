package models

import (
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// JoinHostPort formats a host/port pair for dialing.
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

const (
	MinPort = 1
	MaxPort = 65535

	DefaultSSHPort        = 22
	DefaultConnectTimeout = 10 * time.Second
)

// AuthMethod carries exactly one SSH credential: a password or a parsed
// private key. The zero value carries neither and fails validation.
type AuthMethod struct {
	password string
	signer   ssh.Signer
}

func PasswordAuth(password string) AuthMethod {
	return AuthMethod{password: password}
}

func PrivateKeyAuth(signer ssh.Signer) AuthMethod {
	return AuthMethod{signer: signer}
}

func (a AuthMethod) HasPassword() bool   { return a.password != "" }
func (a AuthMethod) HasPrivateKey() bool { return a.signer != nil }

// SSHAuthMethods renders the credential for the ssh client config.
func (a AuthMethod) SSHAuthMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if a.signer != nil {
		methods = append(methods, ssh.PublicKeys(a.signer))
	}
	if a.password != "" {
		methods = append(methods, ssh.Password(a.password))
	}
	return methods
}

// ConnectionRequest is a validated, typed request to open one SSH session.
// Produced by the credential resolver; never constructed from raw user input
// directly.
type ConnectionRequest struct {
	Name             string // optional saved-session name, for last-connected stamping
	Host             string
	Port             int
	Username         string
	Auth             AuthMethod
	Timeout          time.Duration
	KeepaliveEnabled bool
}

func (r *ConnectionRequest) Address() string {
	return JoinHostPort(r.Host, r.Port)
}

// SavedSession is one named connection profile. Passwords are never stored.
type SavedSession struct {
	Name          string     `mapstructure:"name" yaml:"name"`
	Host          string     `mapstructure:"host" yaml:"host"`
	Port          int        `mapstructure:"port" yaml:"port"`
	Username      string     `mapstructure:"username" yaml:"username"`
	KeyFile       string     `mapstructure:"key_file" yaml:"key_file,omitempty"`
	Timeout       int        `mapstructure:"timeout" yaml:"timeout"`
	Keepalive     bool       `mapstructure:"keepalive" yaml:"keepalive"`
	LastConnected *time.Time `mapstructure:"last_connected" yaml:"last_connected,omitempty"`
}

// OutputChunk is one decoded fragment of shell output. Seq is assigned by the
// data pump in arrival order and is strictly increasing within a session.
type OutputChunk struct {
	Seq  uint64
	Text string
	Time time.Time
}
