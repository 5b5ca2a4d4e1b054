package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/pulse/internal/probe"
	"github.com/okian/pulse/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumEvents  = 2000
	defaultUsers      = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultFloor      = 0
	defaultCeiling    = 4000
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numEvents = flag.Int("events", defaultNumEvents, "Number of events to submit")
		users     = flag.Int("users", defaultUsers, "Number of distinct users")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		floor     = flag.Int("floor", defaultFloor, "Rating floor configured on the server")
		ceiling   = flag.Int("ceiling", defaultCeiling, "Rating ceiling configured on the server")
		logFile   = flag.String("log", "", "Also write logs to this file")
		verbose   = flag.Bool("verbose", false, "Log every failure and violation")
	)
	flag.Parse()

	var opts []logger.Option
	if *logFile != "" {
		opts = append(opts, logger.WithFile(*logFile, 0, 0))
	}
	if err := logger.Init(opts...); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := probe.Run(ctx, &probe.Config{
		BaseURL:   *baseURL,
		NumEvents: *numEvents,
		Users:     *users,
		Workers:   *workers,
		Timeout:   *timeout,
		Floor:     *floor,
		Ceiling:   *ceiling,
		Verbose:   *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(err))
		_ = logger.Sync()
		cancel()
		os.Exit(1)
	}
}
