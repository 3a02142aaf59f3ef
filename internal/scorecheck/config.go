package scorecheck

import (
	"time"

	"github.com/okian/bonk/pkg/logger"
)

// Config holds configuration for a score check run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Rounds       int           // Rounds to play and submit
	Players      []string      // Names submissions rotate through
	HitsPerRound int           // Hits to land before ending a round early
	Readers      int           // Concurrent leaderboard readers
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Interval between state polls
	OutputFile   string        // Report file; empty disables the report
	Verbose      bool          // Enable verbose logging
	Logger       logger.Logger // Defaults to a no-op logger
}

// Entry is one leaderboard row as served by GET /leaderboard.
type Entry struct {
	Rank        int       `json:"rank"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
	Podium      bool      `json:"podium"`
}

// Leaderboard is the GET /leaderboard response.
type Leaderboard struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Message string  `json:"message,omitempty"`
}

// Submission records one score the check submitted.
type Submission struct {
	Round  uint64 `json:"round"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Result string `json:"result"`
}

// Report is written to Config.OutputFile at the end of a run.
type Report struct {
	Submissions []Submission   `json:"submissions"`
	Expected    map[string]int `json:"expected"`
	Final       []Entry        `json:"final"`
	Stats       Stats          `json:"stats"`
}

// Stats holds run statistics.
type Stats struct {
	RoundsPlayed    int           `json:"rounds_played"`
	Hits            int           `json:"hits"`
	Submitted       int           `json:"submitted"`
	Failed          int           `json:"failed"`
	LeaderboardRead int           `json:"leaderboard_reads"`
	Inconsistent    int           `json:"inconsistent_reads"`
	StartTime       time.Time     `json:"start_time"`
	Duration        time.Duration `json:"duration"`
}

type snapshot struct {
	State    string `json:"state"`
	Round    uint64 `json:"round"`
	Score    int    `json:"score"`
	Occupied int    `json:"occupied"`
}

type prompt struct {
	Round uint64 `json:"round"`
	Score int    `json:"score"`
}

type gameState struct {
	Session snapshot `json:"session"`
	Prompt  *prompt  `json:"prompt"`
}

type hitResponse struct {
	Hit   bool `json:"hit"`
	Score int  `json:"score"`
}

type submitResponse struct {
	Status string `json:"status"`
	Result string `json:"result"`
}
