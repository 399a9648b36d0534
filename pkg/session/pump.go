package session

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gmssh-project/gmssh/pkg/goroutine"
	"github.com/gmssh-project/gmssh/pkg/logger"
	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
)

const (
	// ReadChunkSize matches the per-read granularity of the shell channel.
	ReadChunkSize = 4096

	// DrainInterval is the consumer's delivery cadence.
	DrainInterval = 100 * time.Millisecond
)

// DeliveryQueue is the ordered hand-off between the data pump and the
// presentation layer. Single producer, single consumer, unbounded.
type DeliveryQueue struct {
	mu      sync.Mutex
	chunks  []models.OutputChunk
	nextSeq uint64
}

func NewDeliveryQueue() *DeliveryQueue {
	return &DeliveryQueue{}
}

func (q *DeliveryQueue) push(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextSeq++
	q.chunks = append(q.chunks, models.OutputChunk{
		Seq:  q.nextSeq,
		Text: text,
		Time: time.Now(),
	})
}

// Drain removes and returns all queued chunks in FIFO order.
func (q *DeliveryQueue) Drain() []models.OutputChunk {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.chunks) == 0 {
		return nil
	}
	out := q.chunks
	q.chunks = nil
	return out
}

func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// dataPump continuously drains the shell channel into the delivery queue.
// One pump runs per connected handle; it exits on channel closure, EOF, or
// an explicit halt, and never drops chunks it already queued.
type dataPump struct {
	channel sshutils.ShellChanneler
	queue   *DeliveryQueue
	onError func(error)

	stop     chan struct{}
	done     chan struct{}
	haltOnce sync.Once
}

func newDataPump(channel sshutils.ShellChanneler, queue *DeliveryQueue, onError func(error)) *dataPump {
	return &dataPump{
		channel: channel,
		queue:   queue,
		onError: onError,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (p *dataPump) start() {
	go p.run()
}

func (p *dataPump) run() {
	l := logger.Get()
	id := goroutine.RegisterGoroutine("data-pump")
	defer goroutine.DeregisterGoroutine(id)
	defer close(p.done)

	buf := make([]byte, ReadChunkSize)
	for {
		n, err := p.channel.Read(buf)
		if n > 0 {
			// Malformed byte sequences become replacement runes; the
			// stream position is preserved and no data is dropped.
			text := strings.ToValidUTF8(string(buf[:n]), string(utf8.RuneError))
			if text != "" {
				p.queue.push(text)
			}
		}
		if err != nil {
			if p.halted() {
				l.Debug("data pump stopping: channel closed")
				return
			}
			// An EOF we did not ask for means the remote hung up; that is
			// a channel failure like any other and escalates the same way.
			if errors.Is(err, io.EOF) {
				l.Debug("shell channel closed by remote")
			} else {
				l.Warnf("data pump read failed: %v", err)
			}
			p.onError(models.NewChannelError("read", err))
			return
		}
		if p.halted() {
			return
		}
	}
}

// halt asks the pump to stop. The supervisor closes the channel right after
// so a blocked Read unblocks; wait then returns within one read cycle.
func (p *dataPump) halt() {
	p.haltOnce.Do(func() {
		close(p.stop)
	})
}

func (p *dataPump) halted() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *dataPump) wait() {
	<-p.done
}

// ChunkHandler receives drained chunks in FIFO order.
type ChunkHandler func(chunks []models.OutputChunk)

// Consumer drains the delivery queue on a fixed cadence and hands chunks to
// the presentation layer. Stop performs a final drain so chunks queued
// before teardown are still delivered.
type Consumer struct {
	queue    *DeliveryQueue
	handler  ChunkHandler
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewConsumer(queue *DeliveryQueue, handler ChunkHandler) *Consumer {
	return &Consumer{
		queue:    queue,
		handler:  handler,
		interval: DrainInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (c *Consumer) Start() {
	go c.run()
}

func (c *Consumer) run() {
	id := goroutine.RegisterGoroutine("chunk-consumer")
	defer goroutine.DeregisterGoroutine(id)
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Consumer) flush() {
	if chunks := c.queue.Drain(); len(chunks) > 0 {
		c.handler(chunks)
	}
}

func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}
