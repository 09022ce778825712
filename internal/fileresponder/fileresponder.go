// Package fileresponder implements GET static file service (spec §4.4):
// resolve, classify by extension, and emit a response with correct
// framing — buffered for HTML, streamed in fixed chunks for binary
// assets.
package fileresponder

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zynqcloud/httpd/internal/pathresolver"
	"github.com/zynqcloud/httpd/internal/wire"
)

// textExtensions map to their Content-Type, read fully into memory.
var textExtensions = map[string]string{
	".html": "text/html; charset=utf-8",
}

// binaryExtensions stream in fixed-size chunks as octet-stream downloads.
var binaryExtensions = map[string]bool{
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Outcome reports what Serve did: the status it sent and whether bytes
// had reached the writer. The connection handler uses only the returned
// error, not the Outcome.
type Outcome struct {
	Status int
	// BodyWritten is true once response headers (and, for streamed
	// responses, possibly part of the body) have reached the wire — past
	// this point an I/O failure must close the connection rather than
	// attempt a fresh error response (spec §4.4, §7).
	BodyWritten bool
}

// Serve resolves target against resolver and writes the full GET response
// to w, streaming binary bodies in chunkSize pieces.
func Serve(w io.Writer, resolver *pathresolver.Resolver, target string, keepAlive bool, chunkSize int) (Outcome, error) {
	path, ok := resolver.Resolve(target)
	if !ok {
		return writeError(w, 404, keepAlive)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return writeError(w, 404, keepAlive)
	}

	ext := strings.ToLower(filepath.Ext(path))

	if contentType, isText := textExtensions[ext]; isText {
		content, err := os.ReadFile(path)
		if err != nil {
			return writeError(w, 500, keepAlive)
		}
		headers := wire.NewHeaders()
		headers.Set("Content-Type", contentType)
		setConnectionHeaders(headers, keepAlive)
		resp := wire.NewResponse(200, headers, content)
		if _, werr := w.Write(wire.Serialize(resp)); werr != nil {
			return Outcome{Status: 200, BodyWritten: true}, werr
		}
		return Outcome{Status: 200, BodyWritten: true}, nil
	}

	if binaryExtensions[ext] {
		return serveBinary(w, path, info.Size(), keepAlive, chunkSize)
	}

	return writeError(w, 415, keepAlive)
}

func serveBinary(w io.Writer, path string, size int64, keepAlive bool, chunkSize int) (Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return writeError(w, 500, keepAlive)
	}
	defer f.Close()

	headers := wire.NewHeaders()
	headers.Set("Content-Type", "application/octet-stream")
	headers.Set("Content-Length", strconv.FormatInt(size, 10))
	headers.Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	setConnectionHeaders(headers, keepAlive)

	head := wire.NewResponse(200, headers, nil)
	headBytes := wire.Serialize(head)
	// Content-Length was already set explicitly above, so Serialize won't
	// recompute it from a nil body.
	if _, err := w.Write(headBytes); err != nil {
		return Outcome{Status: 200, BodyWritten: false}, err
	}

	buf := make([]byte, chunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Headers are already on the wire; an I/O failure here
				// terminates the connection, it cannot be recovered into
				// a clean error response (spec §4.4).
				return Outcome{Status: 200, BodyWritten: true}, werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return Outcome{Status: 200, BodyWritten: true}, rerr
		}
	}
	return Outcome{Status: 200, BodyWritten: true}, nil
}

func setConnectionHeaders(h *wire.Headers, keepAlive bool) {
	if keepAlive {
		h.Set("Connection", "keep-alive")
		h.Set("Keep-Alive", "timeout=30, max=100")
	} else {
		h.Set("Connection", "close")
	}
}

// writeError emits a minimal error body, setting Connection headers from
// keepAlive rather than forcing close — the connection handler's loop,
// not this responder, owns the actual close decision (spec §4.6), so the
// header sent here must agree with what the handler does next.
func writeError(w io.Writer, status int, keepAlive bool) (Outcome, error) {
	headers := wire.NewHeaders()
	headers.Set("Content-Type", "text/html; charset=utf-8")
	setConnectionHeaders(headers, keepAlive)
	body := []byte("<html><body><h1>" + strconv.Itoa(status) + " " + wire.ReasonFor(status) + "</h1></body></html>")
	resp := wire.NewResponse(status, headers, body)
	if _, err := w.Write(wire.Serialize(resp)); err != nil {
		return Outcome{Status: status, BodyWritten: true}, err
	}
	return Outcome{Status: status, BodyWritten: true}, nil
}
