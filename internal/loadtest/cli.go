package loadtest

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/jansou/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging sends log output to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`jansou load test
================

Creates a throwaway group on a running jansou server, submits sessions
concurrently (with duplicates, updates and deletes mixed in) and checks the
reported standings against a local recomputation.

Usage:
  go run ./cmd/jansou-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -token string
        Bearer token for write routes
  -players int
        Members in the test group (default 12)
  -sessions int
        Distinct sessions to submit (default 500)
  -duplicates float
        Fraction of sessions submitted twice (default 0.1)
  -updates float
        Fraction of sessions rewritten after submission (default 0.1)
  -deletes float
        Fraction of sessions deleted after submission (default 0.05)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Generator seed; 0 picks a random one
  -output string
        File to write the final session set to
  -log string
        Log file for test output
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/jansou-load -sessions 5000 -workers 16
  go run ./cmd/jansou-load -token secret -seed 42 -output sessions.json
`)
}
