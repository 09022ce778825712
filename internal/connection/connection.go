// Package connection drives the per-connection state machine (spec
// §4.6): READ_REQUEST → VALIDATE → DISPATCH → RESPOND, looping back on
// keep-alive, with a per-connection request cap and idle timeout.
package connection

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zynqcloud/httpd/internal/config"
	"github.com/zynqcloud/httpd/internal/fileresponder"
	"github.com/zynqcloud/httpd/internal/hostvalidator"
	"github.com/zynqcloud/httpd/internal/identity"
	"github.com/zynqcloud/httpd/internal/logging"
	"github.com/zynqcloud/httpd/internal/pathresolver"
	"github.com/zynqcloud/httpd/internal/uploadresponder"
	"github.com/zynqcloud/httpd/internal/wire"
)

// Handler drives connections to completion. One Handler is shared by all
// workers; it holds no per-connection mutable state.
type Handler struct {
	Identity   *identity.Identity
	Resolver   *pathresolver.Resolver
	UploadsDir string
	Sink       *logging.Sink
}

// Handle drives conn's full lifetime: every keep-alive iteration, until
// the keep-alive flag turns false or an I/O/parse/timeout error closes
// it. The socket is closed on every exit path. threadLabel identifies the
// owning worker in log lines (spec's "Thread-N").
func (h *Handler) Handle(conn net.Conn, threadLabel string) {
	remote := conn.RemoteAddr().String()
	// A short correlation id lets one connection's log lines be grepped
	// out of an interleaved multi-worker log even across keep-alive
	// iterations — the spec's Thread-N label alone is reused by every
	// connection that worker ever handles.
	connID := uuid.NewString()[:8]
	h.Sink.Printf(threadLabel, "conn=%s Connection from %s", connID, remote)

	defer func() {
		_ = closeConn(conn)
		h.Sink.Printf(threadLabel, "conn=%s Connection closed for %s", connID, remote)
	}()

	var pending []byte
	requestsHandled := 0
	keepAlive := true

	for keepAlive {
		if requestsHandled >= config.KeepAliveMaxRequests {
			h.Sink.Printf(threadLabel, "conn=%s Max requests per connection reached", connID)
			return
		}

		if !containsHeadTerminator(pending) {
			conn.SetReadDeadline(time.Now().Add(time.Duration(config.KeepAliveTimeoutSeconds) * time.Second))
			buf := make([]byte, config.MaxRequestRead)
			n, err := conn.Read(buf)
			if n == 0 || err != nil {
				return
			}
			pending = append(pending, buf[:n]...)

			if !containsHeadTerminator(pending) {
				// One supplementary best-effort read to complete the head
				// (spec §4.6 step 3).
				extra := make([]byte, config.HeadCompletionRead)
				conn.SetReadDeadline(time.Now().Add(time.Duration(config.KeepAliveTimeoutSeconds) * time.Second))
				n2, _ := conn.Read(extra)
				if n2 > 0 {
					pending = append(pending, extra[:n2]...)
				}
			}
		}

		req, err := wire.Parse(pending)
		if err != nil {
			h.Sink.Printf(threadLabel, "conn=%s Malformed request", connID)
			writeError(conn, 400)
			return
		}

		h.Sink.Printf(threadLabel, "conn=%s Request: %s %s %s", connID, req.Method, req.Target, req.Version)

		hostHeader, _ := req.Headers.Get("Host")
		hv := hostvalidator.Validate(hostHeader, h.Identity)
		if !hv.OK {
			writeError(conn, hv.Status)
			return
		}

		keepAlive = decideKeepAlive(req)

		var bodyPrefix []byte
		contentLength, hasLength, lengthErr := parseContentLength(req)
		if lengthErr {
			writeError(conn, 400)
			return
		}

		switch req.Method {
		case "GET":
			// GET carries no body; any extra bytes already read belong to
			// a pipelined next request and must not be discarded.
			bodyPrefix = req.Body
			_, err := fileresponder.Serve(conn, h.Resolver, req.Target, keepAlive, config.FileReadChunk)
			if err != nil {
				return
			}
		case "POST":
			body, leftover, ok := completeBody(conn, req.Body, contentLength, hasLength)
			if !ok {
				writeError(conn, 400)
				return
			}
			bodyPrefix = leftover
			contentType, _ := req.Headers.Get("Content-Type")
			if err := uploadresponder.Serve(conn, h.UploadsDir, contentType, body, keepAlive); err != nil {
				return
			}
		default:
			writeError(conn, 405)
			keepAlive = false
		}

		pending = bodyPrefix
		requestsHandled++
	}
}

// containsHeadTerminator reports whether buf already contains a full
// CRLFCRLF header terminator.
func containsHeadTerminator(buf []byte) bool {
	return indexCRLFCRLF(buf) >= 0
}

func indexCRLFCRLF(buf []byte) int {
	const term = "\r\n\r\n"
	return strings.Index(string(buf), term)
}

// decideKeepAlive applies spec §4.6 step 6: HTTP/1.1 defaults to
// keep-alive unless Connection: close; HTTP/1.0 defaults to close unless
// Connection: keep-alive.
func decideKeepAlive(req *wire.Request) bool {
	conn := strings.ToLower(req.Headers.GetDefault("Connection", ""))
	if req.Version == "HTTP/1.1" {
		return conn != "close"
	}
	return conn == "keep-alive"
}

// parseContentLength reads and validates the Content-Length header, if
// present.
func parseContentLength(req *wire.Request) (length int, has bool, parseFailed bool) {
	v, ok := req.Headers.Get("Content-Length")
	if !ok {
		return 0, false, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, true, true
	}
	return n, true, false
}

// completeBody extends bodyPrefix to contentLength bytes (when present),
// reading the remainder in bounded chunks from conn. Bytes beyond
// contentLength already present in bodyPrefix (a pipelined next request)
// are returned as leftover rather than discarded.
func completeBody(conn net.Conn, bodyPrefix []byte, contentLength int, has bool) (body, leftover []byte, ok bool) {
	if !has {
		return bodyPrefix, nil, true
	}
	if len(bodyPrefix) >= contentLength {
		return bodyPrefix[:contentLength], bodyPrefix[contentLength:], true
	}

	body = append([]byte{}, bodyPrefix...)
	remaining := contentLength - len(bodyPrefix)
	buf := make([]byte, 4096)
	for remaining > 0 {
		readSize := len(buf)
		if remaining < readSize {
			readSize = remaining
		}
		n, err := conn.Read(buf[:readSize])
		if n > 0 {
			body = append(body, buf[:n]...)
			remaining -= n
		}
		if err != nil {
			break
		}
	}
	if remaining > 0 {
		return nil, nil, false
	}
	return body, nil, true
}

func writeError(conn net.Conn, status int) {
	headers := wire.NewHeaders()
	headers.Set("Content-Type", "text/html; charset=utf-8")
	headers.Set("Connection", "close")
	body := []byte("<html><body><h1>" + strconv.Itoa(status) + " " + wire.ReasonFor(status) + "</h1></body></html>")
	resp := wire.NewResponse(status, headers, body)
	_, _ = conn.Write(wire.Serialize(resp))
}

func closeConn(conn net.Conn) error {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	return conn.Close()
}
