// Package logging implements the server's log sink: every line is
// prefixed "[YYYY-MM-DD HH:MM:SS] [Thread-N] ", duplicated to stdout and
// appended to the log file, and stays line-atomic across concurrent
// workers.
//
// The wire format here is fixed by spec (not zap's JSON/console layout),
// so rather than fighting zap's structured-field model this package
// reuses the piece of zap that actually matters for a multi-destination,
// concurrency-safe sink: zapcore.WriteSyncer composition. durable-streams
// wires zap the same layered way (core ← encoder ← sync writer) for its
// own access logging.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
)

// Sink is the process-wide log sink. Its zero value is not usable; build
// one with New.
type Sink struct {
	writer zapcore.WriteSyncer
	file   *os.File
}

// New opens (creating if needed) dir/name and returns a Sink that writes
// every line to both stdout and that file under a single mutex.
func New(dir, name string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	// zapcore.Lock wraps the combined writer in a sync.Mutex so that a line
	// written from one worker never interleaves with a line from another —
	// the same guarantee the original gives its log_lock, applied here via
	// zap's composable WriteSyncer instead of a bespoke mutex type.
	writer := zapcore.Lock(zapcore.NewMultiWriteSyncer(
		zapcore.AddSync(os.Stdout),
		zapcore.AddSync(f),
	))

	return &Sink{writer: writer, file: f}, nil
}

// Printf writes one line "[timestamp] [thread] <message>" to stdout and
// the log file. thread is typically "Thread-N" or "Main". File-write
// failures are swallowed; stdout is never retried — both ambient
// behaviors carried from the original's log() helper.
func (s *Sink) Printf(thread, format string, args ...any) {
	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp(), thread, fmt.Sprintf(format, args...))
	_, _ = s.writer.Write([]byte(line))
}

// Close flushes and closes the underlying log file.
func (s *Sink) Close() error {
	_ = s.writer.Sync()
	return s.file.Close()
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
