// Package simulate drives a complete hackathon round against a running
// server over HTTP and checks the outcome against locally computed scores.
package simulate

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Default configuration constants.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultTeams       = 8
	DefaultTeamSize    = 3
	DefaultSolo        = 4
	DefaultJudges      = 3
	DefaultShortlist   = 4
	DefaultTimeout     = 10 * time.Second
	DefaultRoundWindow = 5 * time.Second
)

// ErrInvalidConfig marks a simulation configuration that cannot run.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the simulation parameters.
type Config struct {
	BaseURL     string        // server base URL
	HackathonID string        // generated when empty
	Teams       int           // number of teams
	TeamSize    int           // members per team
	Solo        int           // individual participants
	Judges      int           // judges on the panel
	Shortlist   int           // top_n passed to /shortlist
	Workers     int           // concurrent HTTP workers
	Timeout     time.Duration // per-request timeout
	RoundWindow time.Duration // how long round 0 stays open from the start of the run
	Seed        uint64        // score generator seed
	Verbose     bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Teams:       DefaultTeams,
		TeamSize:    DefaultTeamSize,
		Solo:        DefaultSolo,
		Judges:      DefaultJudges,
		Shortlist:   DefaultShortlist,
		Workers:     runtime.NumCPU(),
		Timeout:     DefaultTimeout,
		RoundWindow: DefaultRoundWindow,
		Seed:        1,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Teams < 0 || c.Solo < 0 || c.Teams+c.Solo == 0:
		return fmt.Errorf("%w: need at least one team or solo participant", ErrInvalidConfig)
	case c.Teams > 0 && c.TeamSize < 1:
		return fmt.Errorf("%w: team size must be positive", ErrInvalidConfig)
	case c.Judges < 1:
		return fmt.Errorf("%w: need at least one judge", ErrInvalidConfig)
	case c.Shortlist < 0:
		return fmt.Errorf("%w: shortlist size must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.RoundWindow <= 0:
		return fmt.Errorf("%w: round window must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats summarizes one simulation run.
type Stats struct {
	Submissions      int
	Assignments      int
	ScoresSubmitted  int
	ScoresFailed     int
	Shortlisted      int
	EligibleChecked  int
	RebuildsEnqueued int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
