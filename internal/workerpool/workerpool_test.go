package workerpool_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zynqcloud/httpd/internal/logging"
	"github.com/zynqcloud/httpd/internal/workerpool"
)

func newSink(t *testing.T) *logging.Sink {
	t.Helper()
	sink, err := logging.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSubmitRunsHandler(t *testing.T) {
	sink := newSink(t)
	done := make(chan string, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workerpool.New(ctx, 1, 1, sink, func(conn net.Conn, threadLabel string) {
		done <- threadLabel
		_ = conn.Close()
	})
	defer pool.Close()

	client, server := net.Pipe()
	defer client.Close()

	require.True(t, pool.Submit(server))

	select {
	case label := <-done:
		require.Equal(t, "Thread-1", label)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestSubmitRejectsAtCapacity(t *testing.T) {
	sink := newSink(t)
	block := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workerpool.New(ctx, 1, 1, sink, func(conn net.Conn, threadLabel string) {
		<-block
		_ = conn.Close()
	})
	defer func() {
		close(block)
		pool.Close()
	}()

	_, first := net.Pipe()
	_, second := net.Pipe()
	_, third := net.Pipe()
	defer first.Close()
	defer second.Close()
	defer third.Close()

	require.True(t, pool.Submit(first))
	// Give the single worker a chance to pick up first and block in the
	// handler, so second actually occupies the queue slot.
	time.Sleep(50 * time.Millisecond)
	require.True(t, pool.Submit(second))
	require.False(t, pool.Submit(third))
}

func TestPanicInHandlerDoesNotKillWorker(t *testing.T) {
	sink := newSink(t)
	calls := make(chan struct{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workerpool.New(ctx, 1, 2, sink, func(conn net.Conn, threadLabel string) {
		calls <- struct{}{}
		defer conn.Close()
		panic("boom")
	})
	defer pool.Close()

	_, a := net.Pipe()
	_, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	require.True(t, pool.Submit(a))
	require.True(t, pool.Submit(b))

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not survive panic to process second connection")
		}
	}
}
