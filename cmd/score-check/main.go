package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/bonk/internal/scorecheck"
	"github.com/okian/bonk/pkg/logger"
)

const defaultCheckTimeout = 10 * time.Minute

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rounds     = flag.Int("rounds", scorecheck.DefaultRounds, "Rounds to play and submit")
		players    = flag.String("players", strings.Join(scorecheck.DefaultPlayers, ","), "Comma separated player names")
		hits       = flag.Int("hits", scorecheck.DefaultHitsPerRound, "Hits to land before ending each round early")
		readers    = flag.Int("readers", scorecheck.DefaultReaders, "Concurrent leaderboard readers")
		timeout    = flag.Duration("timeout", scorecheck.DefaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write a JSON report to this file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scorecheck.ShowHelp()
		return
	}

	closer, err := scorecheck.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultCheckTimeout)
	defer cancel()

	config := &scorecheck.Config{
		BaseURL:      *baseURL,
		Rounds:       *rounds,
		Players:      splitNames(*players),
		HitsPerRound: *hits,
		Readers:      *readers,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
		Logger:       logger.Named("scorecheck"),
	}

	if _, err := scorecheck.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Score check failed: " + err.Error() + "\n")
		_ = closer.Close()
		cancel()
		os.Exit(1)
	}
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
