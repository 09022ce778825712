// Command server is the entry point for the multi-threaded HTTP server:
// it parses the three positional CLI arguments, bootstraps the
// resources/uploads/logs directories, wires the worker pool and accept
// loop together, and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/zynqcloud/httpd/internal/acceptloop"
	"github.com/zynqcloud/httpd/internal/config"
	"github.com/zynqcloud/httpd/internal/connection"
	"github.com/zynqcloud/httpd/internal/identity"
	"github.com/zynqcloud/httpd/internal/logging"
	"github.com/zynqcloud/httpd/internal/pathresolver"
	"github.com/zynqcloud/httpd/internal/wire"
	"github.com/zynqcloud/httpd/internal/workerpool"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.ParseArgs(os.Args[1:], baseDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := bootstrapDirs(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sink, err := logging.New(cfg.LogDir, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sink.Close()

	wire.SetServerIdentity(config.ServerIdentityString)

	resolver, err := pathresolver.New(cfg.ResourceDir)
	if err != nil {
		sink.Printf("Main", "failed to initialize resource root: %v", err)
		os.Exit(1)
	}

	id := identity.New(cfg.Host, cfg.Port)

	handler := &connection.Handler{
		Identity:   id,
		Resolver:   resolver,
		UploadsDir: cfg.UploadsDir,
		Sink:       sink,
	}

	// Root context — cancelled on SIGINT/SIGTERM so the accept loop stops
	// without its own signal wiring; the worker pool does not watch it and
	// is shut down by pool.Close below (shutdownSignals is defined in
	// signals.go and extended by signals_unix.go via build tags — no
	// OS-specific imports here).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := workerpool.New(ctx, cfg.MaxWorkers, config.ConnQueueMax, sink, handler.Handle)
	sink.Printf("Main", "Thread pool size: %d", cfg.MaxWorkers)
	sink.Printf("Main", "Serving files from '%s'", cfg.ResourceDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)

	runErr := make(chan error, 1)
	go func() {
		runErr <- acceptloop.Run(ctx, cfg.Host, cfg.Port, pool, sink)
	}()

	select {
	case <-quit:
		sink.Printf("Main", "Shutdown requested by user.")
		cancel()
	case err := <-runErr:
		if err != nil {
			sink.Printf("Main", "Main loop error: %v", err)
			cancel()
			os.Exit(1)
		}
	}

	pool.Close()
	os.Exit(0)
}

// bootstrapDirs creates resources/, resources/uploads/, and logs/ if
// missing (spec §6 "Filesystem layout").
func bootstrapDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.ResourceDir, cfg.UploadsDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
