package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
)

var (
	// ErrSessionBusy is returned when a connect attempt arrives while another
	// is in flight or a connection is already up. Attempts are rejected, not
	// queued.
	ErrSessionBusy = errors.New("session is already connecting or connected")

	// ErrNotConnected is returned for writes attempted outside the Connected
	// state.
	ErrNotConnected = errors.New("session is not connected")
)

const eventBufferSize = 32

// ConnectedStamper records a successful connect against a saved session.
// The registry implements it; the supervisor only needs this one method.
type ConnectedStamper interface {
	MarkConnected(name string, at time.Time) error
}

// Supervisor owns the lifecycle of one SSH connection and its interactive
// shell channel. All state transitions are serialized under its lock; the
// data pump and keepalive beacon push failures into it rather than being
// polled.
type Supervisor struct {
	mu      sync.Mutex
	state   models.SessionState
	lastErr error

	dialer sshutils.SSHDialer
	store  ConnectedStamper

	client  sshutils.SSHClienter
	channel sshutils.ShellChanneler
	pump    *dataPump
	beacon  *keepaliveBeacon

	queue  *DeliveryQueue
	events chan Event
	logger *logger.Logger
}

func NewSupervisor(dialer sshutils.SSHDialer) *Supervisor {
	return &Supervisor{
		state:  models.StateDisconnected,
		dialer: dialer,
		queue:  NewDeliveryQueue(),
		events: make(chan Event, eventBufferSize),
		logger: logger.Get(),
	}
}

// SetStore attaches the saved-session registry used to stamp last-connected
// times. Optional; quick connects have nothing to stamp.
func (s *Supervisor) SetStore(store ConnectedStamper) {
	s.store = store
}

// State returns the current session state.
func (s *Supervisor) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the reason for the most recent Failed transition.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Events is the state-change notification feed for the presentation layer.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Queue returns the delivery queue fed by the data pump. The queue survives
// reconnects, so a consumer started once keeps working across them.
func (s *Supervisor) Queue() *DeliveryQueue {
	return s.queue
}

// Client returns the live transport for out-of-band use such as file
// transfers, or nil when no session is connected.
func (s *Supervisor) Client() sshutils.SSHClienter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateConnected {
		return nil
	}
	return s.client
}

// Connect dials the transport, authenticates, and opens the interactive
// shell channel. It blocks the caller until success, failure, or the
// request's timeout. Only one attempt may be outstanding; concurrent calls
// get ErrSessionBusy.
func (s *Supervisor) Connect(ctx context.Context, req *models.ConnectionRequest) error {
	s.mu.Lock()
	if !s.state.CanConnect() {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.setStateLocked(models.StateConnecting, nil)
	s.mu.Unlock()

	s.logger.Infof("Connecting to %s as %s", req.Address(), req.Username)

	client, err := s.dial(ctx, req)
	if err != nil {
		return s.failConnect(err)
	}

	channel, err := client.NewShellChannel()
	if err != nil {
		_ = client.Close()
		return s.failConnect(classifyDialError(fmt.Errorf("failed to open shell channel: %w", err)))
	}

	s.mu.Lock()
	s.client = client
	s.channel = channel
	s.pump = newDataPump(channel, s.queue, s.channelFailed)
	s.pump.start()
	if req.KeepaliveEnabled {
		s.beacon = newKeepaliveBeacon(s.writeIfConnected, s.channelFailed)
		s.beacon.start()
	}
	s.setStateLocked(models.StateConnected, nil)
	s.mu.Unlock()

	s.logger.Infof("Connected to %s", req.Address())

	if s.store != nil && req.Name != "" {
		if err := s.store.MarkConnected(req.Name, time.Now()); err != nil {
			s.logger.Warnf("failed to record last-connected time for %q: %v", req.Name, err)
		}
	}
	return nil
}

func (s *Supervisor) dial(ctx context.Context, req *models.ConnectionRequest) (sshutils.SSHClienter, error) {
	config := sshutils.NewClientConfig(req.Username, req.Auth.SSHAuthMethods(), req.Timeout)

	resCh := make(chan dialResult, 1)
	go func() {
		client, err := s.dialer.Dial("tcp", req.Address(), config)
		resCh <- dialResult{client: client, err: err}
	}()

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, classifyDialError(res.err)
		}
		return res.client, nil
	case <-timer.C:
		go discardLateDial(resCh)
		return nil, models.NewConnectError(models.ConnectTimeout,
			fmt.Errorf("handshake did not complete within %s", req.Timeout))
	case <-ctx.Done():
		go discardLateDial(resCh)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, models.NewConnectError(models.ConnectTimeout, ctx.Err())
		}
		// A deliberate cancel is not a timeout; report it as the abort it is.
		return nil, fmt.Errorf("connect aborted: %w", ctx.Err())
	}
}

type dialResult struct {
	client sshutils.SSHClienter
	err    error
}

// discardLateDial closes a transport that finished connecting after the
// attempt was already abandoned.
func discardLateDial(resCh <-chan dialResult) {
	if res := <-resCh; res.client != nil {
		_ = res.client.Close()
	}
}

func (s *Supervisor) failConnect(err error) error {
	s.logger.Warnf("Connect failed: %v", err)
	s.mu.Lock()
	s.setStateLocked(models.StateFailed, err)
	s.mu.Unlock()
	return err
}

// Disconnect closes the shell channel then the transport. It is idempotent
// and returns only after the data pump and keepalive beacon have stopped, so
// no output or probe can be observed afterwards. Chunks already queued stay
// drainable.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	if s.state != models.StateConnected {
		// Already down, failing, or mid-teardown: nothing to do.
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(models.StateDisconnecting, nil)
	beacon, pump, channel, client := s.detachHandleLocked()
	s.mu.Unlock()

	s.teardown(beacon, pump, channel, client)

	s.mu.Lock()
	s.setStateLocked(models.StateDisconnected, nil)
	s.mu.Unlock()

	s.logger.Info("Disconnected")
	return nil
}

// Send transmits one command line on the shell channel. The trailing newline
// is appended if missing. Sends are serialized with state transitions, so a
// command can never race a disconnect onto a dying channel.
func (s *Supervisor) Send(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	err := s.writeIfConnected(command)
	if err != nil && !errors.Is(err, ErrNotConnected) {
		s.channelFailed(models.NewChannelError("write", err))
	}
	return err
}

// writeIfConnected writes payload on the channel only while Connected. The
// keepalive beacon also sends through here, which is what guarantees no
// probe lands after teardown begins.
func (s *Supervisor) writeIfConnected(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateConnected || s.channel == nil {
		return ErrNotConnected
	}
	if _, err := s.channel.Write([]byte(payload)); err != nil {
		return err
	}
	return nil
}

// channelFailed is the push path from the pump and beacon: a channel-level
// I/O error moves the session to Failed and tears the handle down exactly as
// Disconnect would. Teardown runs on its own goroutine because the reporting
// task is itself one of the tasks being waited on.
func (s *Supervisor) channelFailed(err error) {
	s.mu.Lock()
	if s.state != models.StateConnected {
		// A teardown is already running; this report lost the race.
		s.mu.Unlock()
		return
	}
	s.logger.Errorf("Channel failure: %v", err)
	s.setStateLocked(models.StateFailed, err)
	beacon, pump, channel, client := s.detachHandleLocked()
	s.mu.Unlock()

	go s.teardown(beacon, pump, channel, client)
}

func (s *Supervisor) detachHandleLocked() (*keepaliveBeacon, *dataPump, sshutils.ShellChanneler, sshutils.SSHClienter) {
	beacon, pump, channel, client := s.beacon, s.pump, s.channel, s.client
	s.beacon, s.pump, s.channel, s.client = nil, nil, nil, nil
	return beacon, pump, channel, client
}

func (s *Supervisor) teardown(
	beacon *keepaliveBeacon,
	pump *dataPump,
	channel sshutils.ShellChanneler,
	client sshutils.SSHClienter,
) {
	if beacon != nil {
		beacon.halt()
	}
	if pump != nil {
		// Mark the pump halted before closing the channel so the EOF it
		// observes reads as an expected shutdown, not a remote hang-up.
		pump.halt()
	}
	if channel != nil {
		// Closing the channel unblocks the pump's pending read.
		_ = channel.Close()
	}
	if pump != nil {
		pump.wait()
	}
	if client != nil {
		_ = client.Close()
	}
}

func (s *Supervisor) setStateLocked(state models.SessionState, reason error) {
	s.state = state
	if state == models.StateFailed {
		s.lastErr = reason
	}
	s.logger.Debugf("Session state -> %s", state)

	event := Event{State: state, Reason: reason, Time: time.Now()}
	select {
	case s.events <- event:
	default:
		// Feed is full. Evict the oldest notification so the newest state
		// always lands; a terminal Failed or Disconnected must never be
		// the one dropped.
		select {
		case stale := <-s.events:
			s.logger.Warnf("event feed full, dropping stale %s notification", stale.State)
		default:
		}
		select {
		case s.events <- event:
		default:
		}
	}
}

func classifyDialError(err error) *models.ConnectError {
	var netErr net.Error
	msg := err.Error()
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.NewConnectError(models.ConnectTimeout, err)
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"):
		return models.NewConnectError(models.ConnectAuthFailed, err)
	case strings.Contains(msg, "no key found"),
		strings.Contains(msg, "private key"):
		return models.NewConnectError(models.ConnectKeyError, err)
	default:
		return models.NewConnectError(models.ConnectHostUnreachable, err)
	}
}
