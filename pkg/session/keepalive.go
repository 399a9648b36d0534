package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gmssh-project/gmssh/pkg/goroutine"
	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
)

const (
	// KeepaliveInterval is how often the beacon probes the channel.
	KeepaliveInterval = 30 * time.Second

	// keepalivePayload is harmless to a shell: a space plus newline.
	keepalivePayload = " \n"
)

// keepaliveBeacon periodically writes a probe on the channel while the
// session is connected. A failed send is terminal for the whole channel;
// the beacon never retries on its own.
type keepaliveBeacon struct {
	send     func(payload string) error
	onError  func(error)
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	haltOnce sync.Once
}

func newKeepaliveBeacon(send func(payload string) error, onError func(error)) *keepaliveBeacon {
	return &keepaliveBeacon{
		send:     send,
		onError:  onError,
		interval: KeepaliveInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (b *keepaliveBeacon) start() {
	go b.run()
}

func (b *keepaliveBeacon) run() {
	l := logger.Get()
	id := goroutine.RegisterGoroutine("keepalive-beacon")
	defer goroutine.DeregisterGoroutine(id)
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if err := b.send(keepalivePayload); err != nil {
				if errors.Is(err, ErrNotConnected) {
					// Teardown won the race; nothing to report.
					return
				}
				l.Warnf("keepalive send failed: %v", err)
				b.onError(models.NewChannelError("keepalive", err))
				return
			}
			l.Debug("keepalive probe sent")
		}
	}
}

// halt stops the beacon and waits for it to exit. No probe is sent after
// halt returns.
func (b *keepaliveBeacon) halt() {
	b.haltOnce.Do(func() {
		close(b.stop)
	})
	<-b.done
}
