// Package config holds the server's runtime configuration: the three
// positional CLI arguments plus the tuning constants spec.md fixes as
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8080
	DefaultMaxWorkers = 10

	// ListenBacklog is the nominal listen backlog. It is not passed to the
	// listening socket, which uses the Go runtime's default backlog.
	ListenBacklog = 50
	// ConnQueueMax bounds the worker pool's pending-connection queue.
	ConnQueueMax = 200
	// MaxRequestRead bounds a single non-blocking-ish read of request bytes.
	MaxRequestRead = 8192
	// FileReadChunk is the chunk size used when streaming binary file bodies.
	FileReadChunk = 8192
	// KeepAliveTimeoutSeconds bounds the read wait for the next request on a
	// persistent connection.
	KeepAliveTimeoutSeconds = 30
	// KeepAliveMaxRequests caps how many requests one connection may serve.
	KeepAliveMaxRequests = 100
	// HeadCompletionRead is the size of the one supplementary read performed
	// when a request's CRLFCRLF terminator hasn't arrived yet.
	HeadCompletionRead = 4096

	ServerIdentityString = "Multi-threaded HTTP Server"
)

// Config is the fully resolved set of values the server runs with.
type Config struct {
	Host       string
	Port       int
	MaxWorkers int

	ResourceDir string
	UploadsDir  string
	LogDir      string
	LogFile     string
}

// ParseArgs parses `server [port] [host] [max_threads]` the way the
// original accepts positional, optional arguments — a non-integer port or
// max_threads is a usage error, not a silent fallback to defaults.
func ParseArgs(argv []string, baseDir string) (*Config, error) {
	port := DefaultPort
	host := DefaultHost
	maxWorkers := DefaultMaxWorkers

	if len(argv) >= 1 {
		p, err := strconv.Atoi(argv[0])
		if err != nil {
			return nil, usageError()
		}
		port = p
	}
	if len(argv) >= 2 {
		host = argv[1]
	}
	if len(argv) >= 3 {
		m, err := strconv.Atoi(argv[2])
		if err != nil {
			return nil, usageError()
		}
		maxWorkers = m
	}

	resourceDir := getEnv("RESOURCE_DIR", filepath.Join(baseDir, "resources"))
	return &Config{
		Host:        host,
		Port:        port,
		MaxWorkers:  maxWorkers,
		ResourceDir: resourceDir,
		UploadsDir:  filepath.Join(resourceDir, "uploads"),
		LogDir:      getEnv("LOG_DIR", filepath.Join(baseDir, "logs")),
		LogFile:     "server.log",
	}, nil
}

func usageError() error {
	return fmt.Errorf("usage: server [port] [host] [max_threads]")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
