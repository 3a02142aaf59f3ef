package scorecheck

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/bonk/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log output to stdout and, when logFile is set, to
// that file as well.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out, closer = io.MultiWriter(os.Stdout, file), file
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the score check tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Shiba Bonk Score Check
======================

Plays rounds against a running Shiba Bonk service, submits each score and
verifies the leaderboard ordering while concurrent readers poll it.
The check drives the service's single session; do not play at the same time.

Usage:
  go run ./cmd/score-check [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rounds int
        Rounds to play and submit (default 5)
  -players string
        Comma separated names submissions rotate through (default "Alice,Bob,Cara")
  -hits int
        Hits to land before ending each round early (default 3)
  -readers int
        Concurrent leaderboard readers (default 4)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write a JSON report to this file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/score-check -rounds 10 -readers 8
  go run ./cmd/score-check -url http://localhost:8080 -output report.json
`)
}
