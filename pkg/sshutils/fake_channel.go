package sshutils

import (
	"io"
	"sync"
)

// FakeShellChannel is a scripted in-memory shell channel for tests. Output
// fed with FeedOutput is handed to readers in order; Close unblocks any
// pending Read with io.EOF, matching the real channel's teardown behavior.
type FakeShellChannel struct {
	mu      sync.Mutex
	pending []byte
	writes  []string
	readErr error

	dataReady chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func NewFakeShellChannel() *FakeShellChannel {
	return &FakeShellChannel{
		dataReady: make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

// FeedOutput makes bytes available to the next Read.
func (f *FakeShellChannel) FeedOutput(b []byte) {
	f.mu.Lock()
	f.pending = append(f.pending, b...)
	f.mu.Unlock()
	select {
	case f.dataReady <- struct{}{}:
	default:
	}
}

// FailReads makes the next Read (after pending data drains) return err.
func (f *FakeShellChannel) FailReads(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
	select {
	case f.dataReady <- struct{}{}:
	default:
	}
}

func (f *FakeShellChannel) Read(p []byte) (int, error) {
	for {
		f.mu.Lock()
		if len(f.pending) > 0 {
			n := copy(p, f.pending)
			f.pending = f.pending[n:]
			f.mu.Unlock()
			return n, nil
		}
		err := f.readErr
		f.mu.Unlock()

		if err != nil {
			return 0, err
		}

		select {
		case <-f.dataReady:
		case <-f.closed:
			return 0, io.EOF
		}
	}
}

func (f *FakeShellChannel) Write(p []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	f.mu.Lock()
	f.writes = append(f.writes, string(p))
	f.mu.Unlock()
	return len(p), nil
}

func (f *FakeShellChannel) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return nil
}

// Writes returns everything written to the channel so far.
func (f *FakeShellChannel) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

// IsClosed reports whether Close has been called.
func (f *FakeShellChannel) IsClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}
