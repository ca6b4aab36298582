package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/jansou/internal/loadtest"
)

// Default configuration constants.
const (
	defaultPlayers     = 12
	defaultSessions    = 500
	defaultDuplicates  = 0.1
	defaultUpdates     = 0.1
	defaultDeletes     = 0.05
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		token      = flag.String("token", "", "Bearer token for write routes")
		players    = flag.Int("players", defaultPlayers, "Members in the test group")
		sessions   = flag.Int("sessions", defaultSessions, "Distinct sessions to submit")
		duplicates = flag.Float64("duplicates", defaultDuplicates, "Fraction of sessions submitted twice")
		updates    = flag.Float64("updates", defaultUpdates, "Fraction of sessions rewritten after submission")
		deletes    = flag.Float64("deletes", defaultDeletes, "Fraction of sessions deleted after submission")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Generator seed; 0 picks a random one")
		outputFile = flag.String("output", "", "File to write the final session set to")
		logFile    = flag.String("log", "", "Log file for test output")
		verbose    = flag.Bool("verbose", false, "Log every failed request")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:    *baseURL,
		Token:      *token,
		Players:    *players,
		Sessions:   *sessions,
		Duplicates: *duplicates,
		Updates:    *updates,
		Deletes:    *deletes,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
