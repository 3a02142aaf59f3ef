package scorecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/bonk/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Run plays cfg.Rounds rounds against the service, submits each score,
// and verifies the leaderboard while concurrent readers poll it. The
// service must not be used by anyone else during the run.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	cfg.applyDefaults()
	log := cfg.Logger
	c := newClient(cfg.BaseURL, cfg.Timeout)
	report := &Report{Expected: make(map[string]int), Stats: Stats{StartTime: time.Now()}}

	log.Info(ctx, "starting score check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("readers", cfg.Readers),
		logger.Any("players", cfg.Players),
	)

	if err := c.get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	var initial Leaderboard
	if err := c.get(ctx, "/leaderboard", &initial); err != nil {
		return nil, fmt.Errorf("initial leaderboard: %w", err)
	}
	if err := VerifyBoard(initial.Entries); err != nil {
		return nil, fmt.Errorf("initial leaderboard: %w", err)
	}
	for _, e := range initial.Entries {
		for _, p := range cfg.Players {
			if e.Name == p {
				report.Expected[p] = e.Score
			}
		}
	}

	readCtx, stopReaders := context.WithCancel(ctx)
	var (
		wg           sync.WaitGroup
		reads        atomic.Int64
		inconsistent atomic.Int64
	)
	for i := range cfg.Readers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			readLeaderboard(readCtx, c, cfg.PollInterval, &reads, &inconsistent, log.Named("reader-"+strconv.Itoa(id)))
		}(i)
	}

	err := playAll(ctx, cfg, c, report, log)
	stopReaders()
	wg.Wait()
	report.Stats.LeaderboardRead = int(reads.Load())
	report.Stats.Inconsistent = int(inconsistent.Load())
	if err != nil {
		return report, err
	}

	var final Leaderboard
	if err := c.get(ctx, "/leaderboard", &final); err != nil {
		return report, fmt.Errorf("final leaderboard: %w", err)
	}
	report.Final = final.Entries
	report.Stats.Duration = time.Since(report.Stats.StartTime)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	if err := VerifyBoard(final.Entries); err != nil {
		return report, err
	}
	if err := VerifyExpected(final, report.Expected); err != nil {
		return report, err
	}
	if n := report.Stats.Inconsistent; n > 0 {
		return report, fmt.Errorf("%w: %d concurrent reads", ErrInconsistent, n)
	}

	log.Info(ctx, "score check passed",
		logger.Int("rounds", report.Stats.RoundsPlayed),
		logger.Int("hits", report.Stats.Hits),
		logger.Int("submitted", report.Stats.Submitted),
		logger.Int("leaderboardReads", report.Stats.LeaderboardRead),
		logger.Duration("duration", report.Stats.Duration),
	)
	return report, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	if len(cfg.Players) == 0 {
		cfg.Players = DefaultPlayers
	}
	if cfg.HitsPerRound <= 0 {
		cfg.HitsPerRound = DefaultHitsPerRound
	}
	if cfg.Readers < 0 {
		cfg.Readers = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
}

func playAll(ctx context.Context, cfg *Config, c *client, report *Report, log logger.Logger) error {
	for i := range cfg.Rounds {
		name := cfg.Players[i%len(cfg.Players)]
		round, hits, err := playRound(ctx, cfg, c)
		if err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
		report.Stats.RoundsPlayed++
		report.Stats.Hits += hits

		p, err := waitForPrompt(ctx, cfg, c, round)
		if err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}

		var resp submitResponse
		if err := c.post(ctx, "/scores", map[string]string{"name": name}, &resp, http.StatusOK); err != nil {
			report.Stats.Failed++
			return fmt.Errorf("round %d submit: %w", i+1, err)
		}
		report.Stats.Submitted++
		report.Submissions = append(report.Submissions, Submission{Round: round, Name: name, Score: p.Score, Result: resp.Result})
		if best, ok := report.Expected[name]; !ok || p.Score > best {
			report.Expected[name] = p.Score
		}

		if cfg.Verbose {
			log.Info(ctx, "round submitted",
				logger.Any("round", round),
				logger.String("name", name),
				logger.Int("score", p.Score),
				logger.String("result", resp.Result),
			)
		}
	}
	return nil
}

// playRound starts a round, hits targets until HitsPerRound land or the
// timer runs out, then stops it.
func playRound(ctx context.Context, cfg *Config, c *client) (uint64, int, error) {
	var snap snapshot
	if err := c.post(ctx, "/game/start", nil, &snap, http.StatusOK); err != nil {
		return 0, 0, err
	}
	hits := 0
	for {
		var st gameState
		if err := c.get(ctx, "/game/state", &st); err != nil {
			return 0, 0, err
		}
		if st.Session.Round != snap.Round {
			return 0, 0, fmt.Errorf("%w: round changed to %d while playing %d", ErrInconsistent, st.Session.Round, snap.Round)
		}
		if st.Session.State != "running" {
			return snap.Round, hits, nil
		}
		if hits >= cfg.HitsPerRound {
			if err := c.post(ctx, "/game/stop", nil, nil, http.StatusOK); err != nil {
				return 0, 0, err
			}
			return snap.Round, hits, nil
		}
		if st.Session.Occupied >= 0 {
			var hr hitResponse
			if err := c.post(ctx, "/game/hit/"+strconv.Itoa(st.Session.Occupied), nil, &hr, http.StatusOK); err != nil {
				return 0, 0, err
			}
			if hr.Hit {
				hits++
			}
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return 0, 0, err
		}
	}
}

func waitForPrompt(ctx context.Context, cfg *Config, c *client, round uint64) (prompt, error) {
	deadline := time.Now().Add(promptWaitLimit)
	for time.Now().Before(deadline) {
		var st gameState
		if err := c.get(ctx, "/game/state", &st); err != nil {
			return prompt{}, err
		}
		if st.Prompt != nil && st.Prompt.Round == round {
			if st.Prompt.Score != st.Session.Score {
				return prompt{}, fmt.Errorf("%w: prompt score %d, session score %d", ErrInconsistent, st.Prompt.Score, st.Session.Score)
			}
			return *st.Prompt, nil
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return prompt{}, err
		}
	}
	return prompt{}, ErrNoPrompt
}

func readLeaderboard(ctx context.Context, c *client, every time.Duration, reads, inconsistent *atomic.Int64, log logger.Logger) {
	for {
		var board Leaderboard
		err := c.get(ctx, "/leaderboard", &board)
		if ctx.Err() != nil {
			return
		}
		reads.Add(1)
		if err == nil {
			err = VerifyBoard(board.Entries)
		}
		if err != nil {
			inconsistent.Add(1)
			log.Warn(ctx, "leaderboard read failed", logger.Error(err))
		}
		if sleep(ctx, every) != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func saveReport(filename string, report *Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
