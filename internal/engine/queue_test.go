package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kibitz/internal/uci"
)

func position(fen string) uci.Command {
	return uci.Command{Kind: uci.SetPosition, FEN: fen}
}

func TestCommandQueue_EnqueueDequeue(t *testing.T) {
	q := newCommandQueue(4)

	require.NoError(t, q.Enqueue(position("fen-1")))

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, uci.SetPosition, got.Kind)
	assert.Equal(t, "fen-1", got.FEN)
}

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue(4)

	require.NoError(t, q.Enqueue(position("A")))
	require.NoError(t, q.Enqueue(position("B")))
	require.NoError(t, q.Enqueue(uci.Command{Kind: uci.RequestEvaluation, ID: 1}))

	c1, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "A", c1.FEN)

	c2, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "B", c2.FEN)

	c3, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, uci.RequestEvaluation, c3.Kind)
}

func TestCommandQueue_TryDequeue_Empty(t *testing.T) {
	q := newCommandQueue(1)

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCommandQueue_Full(t *testing.T) {
	q := newCommandQueue(2)

	require.NoError(t, q.Enqueue(position("A")))
	require.NoError(t, q.Enqueue(position("B")))

	err := q.Enqueue(position("C"))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.NoError(t, q.Enqueue(position("C")), "room after dequeue")
}

func TestCommandQueue_Wait_Signals(t *testing.T) {
	q := newCommandQueue(4)

	done := make(chan uci.Command)
	go func() {
		<-q.Wait()
		c, ok := q.TryDequeue()
		if ok {
			done <- c
		}
	}()

	// Give goroutine time to block
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, q.Enqueue(position("waited")))

	select {
	case c := <-done:
		assert.Equal(t, "waited", c.FEN)
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock")
	}
}

func TestCommandQueue_Close_UnblocksWait(t *testing.T) {
	q := newCommandQueue(4)

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after close")
	}
	assert.True(t, q.Drained())
}

func TestCommandQueue_CloseKeepsQueued(t *testing.T) {
	q := newCommandQueue(4)
	require.NoError(t, q.Enqueue(position("A")))

	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Drained(), "queued commands survive close")
	_, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.True(t, q.Drained())
}

func TestCommandQueue_Enqueue_AfterClose(t *testing.T) {
	q := newCommandQueue(4)
	q.Close()

	err := q.Enqueue(position("late"))
	assert.ErrorIs(t, err, errQueueClosed)
}

func TestCommandQueue_Len(t *testing.T) {
	q := newCommandQueue(4)

	assert.Equal(t, 0, q.Len())

	q.Enqueue(position("1"))
	assert.Equal(t, 1, q.Len())

	q.Enqueue(position("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_ThreadSafe(t *testing.T) {
	const producers = 10
	const commandsPerProducer = 100
	q := newCommandQueue(producers * commandsPerProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < commandsPerProducer; i++ {
				q.Enqueue(uci.Command{Kind: uci.RequestEvaluation, ID: int64(producerID*1000 + i)})
			}
		}(p)
	}

	received := make(map[int64]bool)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for len(received) < producers*commandsPerProducer {
			c, ok := q.TryDequeue()
			if !ok {
				<-q.Wait()
				continue
			}
			received[c.ID] = true
		}
	}()

	wg.Wait()

	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer timeout: received %d commands", len(received))
	}
	assert.Len(t, received, producers*commandsPerProducer)
}
