package sshutils

import (
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/ssh"
)

// MockSSHDialer is a mock implementation of SSHDialer.
type MockSSHDialer struct {
	mock.Mock
}

func NewMockSSHDialer() *MockSSHDialer {
	return &MockSSHDialer{}
}

func (m *MockSSHDialer) Dial(
	network, addr string,
	config *ssh.ClientConfig,
) (SSHClienter, error) {
	args := m.Called(network, addr, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHClienter), args.Error(1)
}

// MockSSHClient is a mock implementation of SSHClienter.
type MockSSHClient struct {
	mock.Mock
}

func NewMockSSHClient() *MockSSHClient {
	return &MockSSHClient{}
}

func (m *MockSSHClient) NewShellChannel() (ShellChanneler, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ShellChanneler), args.Error(1)
}

func (m *MockSSHClient) NewSFTPSession() (SFTPSessioner, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SFTPSessioner), args.Error(1)
}

func (m *MockSSHClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSFTPSession is a mock implementation of SFTPSessioner.
type MockSFTPSession struct {
	mock.Mock
}

func NewMockSFTPSession() *MockSFTPSession {
	return &MockSFTPSession{}
}

func (m *MockSFTPSession) Put(localPath, remotePath string) error {
	args := m.Called(localPath, remotePath)
	return args.Error(0)
}

func (m *MockSFTPSession) Get(remotePath, localPath string) error {
	args := m.Called(remotePath, localPath)
	return args.Error(0)
}

func (m *MockSFTPSession) Close() error {
	args := m.Called()
	return args.Error(0)
}
