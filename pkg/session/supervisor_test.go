package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
)

func passwordRequest() *models.ConnectionRequest {
	return &models.ConnectionRequest{
		Host:     "example.com",
		Port:     22,
		Username: "testuser",
		Auth:     models.PasswordAuth("secret"),
		Timeout:  5 * time.Second,
	}
}

// fakeDialer returns a dialer whose transport hands out the given channel.
func fakeDialer(channel sshutils.ShellChanneler) (*sshutils.SSHDial, *sshutils.MockSSHClient) {
	mockClient := sshutils.NewMockSSHClient()
	mockClient.On("NewShellChannel").Return(channel, nil)
	mockClient.On("Close").Return(nil)
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			return mockClient, nil
		},
	}
	return dialer, mockClient
}

func TestConnectStateSequence(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	assert.Equal(t, models.StateConnected, s.State())

	var states []models.SessionState
	for len(s.Events()) > 0 {
		states = append(states, (<-s.Events()).State)
	}
	assert.Equal(t, []models.SessionState{models.StateConnecting, models.StateConnected}, states)

	require.NoError(t, s.Disconnect())
	assert.Equal(t, models.StateDisconnected, s.State())
}

func TestConnectRejectedWhileConnected(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	defer s.Disconnect()

	err := s.Connect(context.Background(), passwordRequest())
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.Equal(t, models.StateConnected, s.State())
}

func TestConcurrentConnectsOnlyOneSucceeds(t *testing.T) {
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	mockClient := sshutils.NewMockSSHClient()
	mockClient.On("NewShellChannel").Return(sshutils.NewFakeShellChannel(), nil)
	mockClient.On("Close").Return(nil)
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			close(dialStarted)
			<-release
			return mockClient, nil
		},
	}
	s := NewSupervisor(dialer)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Connect(context.Background(), passwordRequest()) }()

	<-dialStarted
	secondErr := s.Connect(context.Background(), passwordRequest())
	assert.ErrorIs(t, secondErr, ErrSessionBusy)

	close(release)
	require.NoError(t, <-firstDone)
	s.Disconnect()
}

func TestConnectTimeout(t *testing.T) {
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			// Unreachable host: the dial never lands.
			time.Sleep(5 * time.Second)
			return nil, fmt.Errorf("dial tcp: connect: no route to host")
		},
	}
	s := NewSupervisor(dialer)

	req := passwordRequest()
	req.Timeout = 100 * time.Millisecond

	start := time.Now()
	err := s.Connect(context.Background(), req)
	elapsed := time.Since(start)

	var cErr *models.ConnectError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, models.ConnectTimeout, cErr.Kind)
	assert.Less(t, elapsed, time.Second, "timeout must abort the attempt promptly")
	assert.Equal(t, models.StateFailed, s.State())

	// The session never reported Connected.
	for len(s.Events()) > 0 {
		assert.NotEqual(t, models.StateConnected, (<-s.Events()).State)
	}
}

func TestConnectAuthFailure(t *testing.T) {
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			return nil, fmt.Errorf("ssh: handshake failed: ssh: unable to authenticate")
		},
	}
	s := NewSupervisor(dialer)

	err := s.Connect(context.Background(), passwordRequest())
	var cErr *models.ConnectError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, models.ConnectAuthFailed, cErr.Kind)
	assert.Equal(t, models.StateFailed, s.State())
}

func TestReconnectAllowedAfterFailure(t *testing.T) {
	attempts := 0
	ch := sshutils.NewFakeShellChannel()
	_, mockClient := fakeDialer(ch)
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("dial tcp: connection refused")
			}
			return mockClient, nil
		},
	}
	s := NewSupervisor(dialer)

	assert.Error(t, s.Connect(context.Background(), passwordRequest()))
	assert.Equal(t, models.StateFailed, s.State())

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	assert.Equal(t, models.StateConnected, s.State())
	s.Disconnect()
}

func TestSendRequiresConnected(t *testing.T) {
	dialer := sshutils.NewSSHDial()
	s := NewSupervisor(dialer)

	assert.ErrorIs(t, s.Send("ls"), ErrNotConnected)
}

func TestSendAppendsNewline(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	require.NoError(t, s.Send("ls"))
	require.NoError(t, s.Send("pwd\n"))
	s.Disconnect()

	assert.Equal(t, []string{"ls\n", "pwd\n"}, ch.Writes())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Disconnect())
	assert.Equal(t, models.StateDisconnected, s.State())

	// Disconnect with nothing connected is also a no-op.
	fresh := NewSupervisor(sshutils.NewSSHDial())
	assert.NoError(t, fresh.Disconnect())
}

func TestDisconnectStopsOutputAndWrites(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))

	ch.FeedOutput([]byte("before\n"))
	deadline := time.Now().Add(2 * time.Second)
	for s.Queue().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, s.Disconnect())
	assert.True(t, ch.IsClosed())

	// Chunks queued before the disconnect survive for draining.
	chunks := s.Queue().Drain()
	require.NotEmpty(t, chunks)
	assert.Equal(t, "before\n", chunks[0].Text)

	// After disconnect returns, nothing new is ever delivered or sent.
	assert.ErrorIs(t, s.Send("ls"), ErrNotConnected)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, s.Queue().Len())
}

func TestChannelFailureEscalatesToFailed(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, mockClient := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))

	ch.FailReads(errors.New("connection reset by peer"))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != models.StateFailed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, models.StateFailed, s.State())

	var chErr *models.ChannelError
	require.ErrorAs(t, s.LastError(), &chErr)

	// Teardown follows the failure; wait for the transport to be closed.
	deadline = time.Now().Add(2 * time.Second)
	for !ch.IsClosed() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, ch.IsClosed())
	mockClient.AssertCalled(t, "Close")
}

func TestWriteFailureEscalatesToFailed(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))

	// Closing the fake makes writes fail while the supervisor still thinks
	// the session is up.
	ch.Close()
	err := s.Send("ls")
	assert.Error(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != models.StateFailed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, models.StateFailed, s.State())
}

type recordingStore struct {
	mu     sync.Mutex
	marked map[string]time.Time
}

func (r *recordingStore) MarkConnected(name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.marked == nil {
		r.marked = make(map[string]time.Time)
	}
	r.marked[name] = at
	return nil
}

func TestConnectStampsSavedSession(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, _ := fakeDialer(ch)
	s := NewSupervisor(dialer)

	store := &recordingStore{}
	s.SetStore(store)

	req := passwordRequest()
	req.Name = "staging"
	require.NoError(t, s.Connect(context.Background(), req))
	defer s.Disconnect()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Contains(t, store.marked, "staging")
}

func TestClientOnlyAvailableWhileConnected(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	dialer, mockClient := fakeDialer(ch)
	s := NewSupervisor(dialer)

	assert.Nil(t, s.Client(), "no transport before connecting")

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	assert.Same(t, mockClient, s.Client())

	require.NoError(t, s.Disconnect())
	assert.Nil(t, s.Client(), "no transport after disconnecting")
}

func TestTerminalEventSurvivesFullFeed(t *testing.T) {
	var current *sshutils.FakeShellChannel
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			current = sshutils.NewFakeShellChannel()
			mockClient := sshutils.NewMockSSHClient()
			mockClient.On("NewShellChannel").Return(current, nil)
			mockClient.On("Close").Return(nil)
			return mockClient, nil
		},
	}
	s := NewSupervisor(dialer)

	// Fill the notification feed well past its capacity without draining.
	for i := 0; i < eventBufferSize; i++ {
		require.NoError(t, s.Connect(context.Background(), passwordRequest()))
		require.NoError(t, s.Disconnect())
	}

	require.NoError(t, s.Connect(context.Background(), passwordRequest()))
	current.FailReads(errors.New("connection reset by peer"))

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != models.StateFailed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, models.StateFailed, s.State())

	var last models.SessionState
	for len(s.Events()) > 0 {
		last = (<-s.Events()).State
	}
	assert.Equal(t, models.StateFailed, last,
		"the terminal notification must survive a saturated feed")
}

func TestConnectCancelledIsNotClassifiedAsTimeout(t *testing.T) {
	release := make(chan struct{})
	dialer := &sshutils.SSHDial{
		DialCreator: func(network, addr string, config *ssh.ClientConfig) (sshutils.SSHClienter, error) {
			<-release
			return nil, errors.New("too late")
		},
	}
	s := NewSupervisor(dialer)
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(ctx, passwordRequest()) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != models.StateConnecting && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		var connErr *models.ConnectError
		assert.False(t, errors.As(err, &connErr),
			"a deliberate cancel must not carry a connect-failure kind")
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return after cancellation")
	}
	assert.Equal(t, models.StateFailed, s.State())
}
