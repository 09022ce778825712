// Package workerpool implements the fixed-size worker pool with a
// bounded pending queue (spec §4.7): submit/reject admission control, a
// fixed set of long-lived workers, and an active-worker count that is
// observability-only and never gates admission.
package workerpool

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zynqcloud/httpd/internal/logging"
)

// ConnHandler drives one accepted connection to completion. It must
// never panic past its own recover boundary; Pool recovers around every
// invocation anyway so a single bad connection can't kill a worker.
type ConnHandler func(conn net.Conn, threadLabel string)

// Pool is a fixed set of workers pulling off a shared bounded queue.
type Pool struct {
	queue  chan net.Conn
	active atomic.Int64
	group  *errgroup.Group
	sink   *logging.Sink
}

// New creates a Pool with maxWorkers long-lived workers draining a
// queue of capacity queueCap, and starts them immediately.
//
// Workers are launched and drained through an errgroup.Group (the
// pattern mutablelogic-go-filer uses for its own fixed background
// goroutine sets) rather than a hand-rolled sync.WaitGroup, so shutdown
// is a single Wait() call once ctx is cancelled and the queue is closed.
func New(ctx context.Context, maxWorkers, queueCap int, sink *logging.Sink, handle ConnHandler) *Pool {
	p := &Pool{
		queue: make(chan net.Conn, queueCap),
		sink:  sink,
	}
	group, _ := errgroup.WithContext(ctx)
	p.group = group

	for i := 1; i <= maxWorkers; i++ {
		threadLabel := threadName(i)
		group.Go(func() error {
			p.workerLoop(threadLabel, handle)
			return nil
		})
	}
	return p
}

func (p *Pool) workerLoop(threadLabel string, handle ConnHandler) {
	for conn := range p.queue {
		p.active.Add(1)
		p.runOne(conn, threadLabel, handle)
		p.active.Add(-1)
	}
}

// runOne invokes handle, recovering any panic so a single connection's
// fault is logged and never kills the worker (spec §4.7, §7).
func (p *Pool) runOne(conn net.Conn, threadLabel string, handle ConnHandler) {
	defer func() {
		if r := recover(); r != nil {
			p.sink.Printf(threadLabel, "Exception: %v", r)
		}
		_ = conn.Close()
	}()
	handle(conn, threadLabel)
}

// Submit performs a non-blocking enqueue. It returns true if the queue
// had room, false if at capacity — the caller is responsible for
// rejecting the connection when false is returned. There is no blocking
// submit: the accept loop must never stall.
func (p *Pool) Submit(conn net.Conn) bool {
	select {
	case p.queue <- conn:
		return true
	default:
		return false
	}
}

// Active returns the current number of workers actively handling a
// connection. Observability only.
func (p *Pool) Active() int64 { return p.active.Load() }

// QueueLen returns the number of connections currently waiting in the
// pending queue.
func (p *Pool) QueueLen() int { return len(p.queue) }

// Close closes the queue and waits until the workers have finished their
// current connections and every connection still queued. It does not
// interrupt a worker mid-connection — spec's shutdown model abandons
// in-flight connections only on process exit, not on a graceful Close.
func (p *Pool) Close() {
	close(p.queue)
	_ = p.group.Wait()
}

func threadName(i int) string {
	return "Thread-" + strconv.Itoa(i)
}
