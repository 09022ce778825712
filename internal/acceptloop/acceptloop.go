// Package acceptloop implements the accept loop (spec §4.8): bind,
// listen, accept, hand off to the worker pool, and reject with 503 when
// the pool is saturated.
package acceptloop

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/zynqcloud/httpd/internal/logging"
	"github.com/zynqcloud/httpd/internal/wire"
	"github.com/zynqcloud/httpd/internal/workerpool"
)

// Run binds (host, port), listens, and loops accepting connections until
// ctx is cancelled. The listen backlog is the Go runtime's default;
// config.ListenBacklog is not applied. Every accepted connection
// is submitted to pool; if the pool rejects it, a 503 is synthesized
// directly on the socket and it is closed. A user interrupt (ctx
// cancellation) stops the loop; any other accept error is logged and the
// loop continues.
func Run(ctx context.Context, host string, port int, pool *workerpool.Pool, sink *logging.Sink) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	sink.Printf("Main", "HTTP Server started on http://%s:%d", host, port)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				sink.Printf("Main", "Accept error: %v", err)
				continue
			}
		}

		if !pool.Submit(conn) {
			rejectAtCapacity(conn)
		}
	}
}

// rejectAtCapacity synthesizes a 503 directly on an accepted socket when
// the worker pool's queue is full, then closes it.
func rejectAtCapacity(conn net.Conn) {
	headers := wire.NewHeaders()
	headers.Set("Retry-After", "5")
	headers.Set("Content-Type", "text/html; charset=utf-8")
	headers.Set("Connection", "close")
	body := []byte("<html><body><h1>503 Service Unavailable</h1></body></html>")
	resp := wire.NewResponse(503, headers, body)
	_, _ = conn.Write(wire.Serialize(resp))
	_ = conn.Close()
}
