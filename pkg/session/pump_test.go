package session

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmssh-project/gmssh/pkg/models"
	"github.com/gmssh-project/gmssh/pkg/sshutils"
)

func drainAll(t *testing.T, queue *DeliveryQueue, want string) string {
	t.Helper()
	var b strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for b.Len() < len(want) && time.Now().Before(deadline) {
		for _, chunk := range queue.Drain() {
			b.WriteString(chunk.Text)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return b.String()
}

func TestPumpDeliversChunksInOrder(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()
	pump := newDataPump(ch, queue, func(err error) { t.Errorf("unexpected pump error: %v", err) })
	pump.start()

	var want strings.Builder
	for i := 0; i < 50; i++ {
		text := fmt.Sprintf("line-%02d\n", i)
		want.WriteString(text)
		ch.FeedOutput([]byte(text))
	}

	got := drainAll(t, queue, want.String())
	assert.Equal(t, want.String(), got)

	pump.halt()
	ch.Close()
	pump.wait()
}

func TestPumpSequenceNumbersIncrease(t *testing.T) {
	queue := NewDeliveryQueue()
	queue.push("a")
	queue.push("b")
	queue.push("c")

	chunks := queue.Drain()
	require.Len(t, chunks, 3)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Seq, chunks[i-1].Seq)
	}
}

func TestPumpReplacesInvalidUTF8(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()
	pump := newDataPump(ch, queue, func(error) {})
	pump.start()

	ch.FeedOutput([]byte{'o', 'k', 0xff, 0xfe, '!'})

	got := drainAll(t, queue, "ok�!")
	assert.True(t, strings.HasPrefix(got, "ok"))
	assert.Contains(t, got, "�")
	assert.True(t, strings.HasSuffix(got, "!"))

	pump.halt()
	ch.Close()
	pump.wait()
}

func TestPumpStaysQuietOnHaltedEOF(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()

	var mu sync.Mutex
	var pumpErr error
	pump := newDataPump(ch, queue, func(err error) {
		mu.Lock()
		pumpErr = err
		mu.Unlock()
	})
	pump.start()

	ch.FeedOutput([]byte("bye\n"))
	// Allow the fed output to be consumed before stopping.
	drainAll(t, queue, "bye\n")
	pump.halt()
	ch.Close()
	pump.wait()

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, pumpErr, "EOF after halt is expected closure, not a channel error")
}

func TestPumpReportsUnexpectedEOF(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()

	errCh := make(chan error, 1)
	pump := newDataPump(ch, queue, func(err error) { errCh <- err })
	pump.start()

	// The remote side hangs up while the session is still live.
	ch.Close()
	pump.wait()

	select {
	case err := <-errCh:
		var chErr *models.ChannelError
		require.ErrorAs(t, err, &chErr)
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not report the remote hang-up")
	}
}

func TestPumpReportsReadError(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()

	errCh := make(chan error, 1)
	pump := newDataPump(ch, queue, func(err error) { errCh <- err })
	pump.start()

	ch.FailReads(errors.New("connection reset by peer"))

	select {
	case err := <-errCh:
		var chErr *models.ChannelError
		require.ErrorAs(t, err, &chErr)
		assert.Equal(t, "read", chErr.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not report the read error")
	}
	pump.wait()
}

func TestPumpKeepsQueuedChunksAfterTermination(t *testing.T) {
	ch := sshutils.NewFakeShellChannel()
	queue := NewDeliveryQueue()
	pump := newDataPump(ch, queue, func(error) {})
	pump.start()

	ch.FeedOutput([]byte("still here\n"))
	// Wait for the pump to queue the chunk, then kill the channel without
	// draining.
	deadline := time.Now().Add(2 * time.Second)
	for queue.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ch.Close()
	pump.wait()

	chunks := queue.Drain()
	require.NotEmpty(t, chunks)
	assert.Equal(t, "still here\n", chunks[0].Text)
}

func TestConsumerDeliversFIFO(t *testing.T) {
	queue := NewDeliveryQueue()

	var mu sync.Mutex
	var got []string
	consumer := NewConsumer(queue, func(chunks []models.OutputChunk) {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range chunks {
			got = append(got, c.Text)
		}
	})
	consumer.Start()

	queue.push("one")
	queue.push("two")
	queue.push("three")

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	consumer.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestConsumerStopDrainsRemainder(t *testing.T) {
	queue := NewDeliveryQueue()

	var mu sync.Mutex
	var got []string
	consumer := NewConsumer(queue, func(chunks []models.OutputChunk) {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range chunks {
			got = append(got, c.Text)
		}
	})
	consumer.Start()

	queue.push("tail-chunk")
	consumer.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, got, "tail-chunk", "Stop must flush chunks queued before teardown")
}
