package scheduler

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestScheduler(cfg Config) *WaitScheduler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	return NewWaitScheduler(nil, nil, nil, nil, logger, nil, cfg)
}

func TestNewWaitScheduler_ConfigDefaults(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(Config{})

	assert.Equal(t, DefaultSweepInterval, s.sweepInterval)
	assert.Equal(t, DefaultLookahead, s.lookahead)
}

func TestNewWaitScheduler_LookaheadExceedsSweepInterval(t *testing.T) {
	t.Parallel()

	// A lookahead at or below the sweep interval would let an execution fall
	// into the gap between two sweeps.
	s := newTestScheduler(Config{
		SweepInterval: 30 * time.Second,
		Lookahead:     30 * time.Second,
	})

	assert.Equal(t, 30*time.Second, s.sweepInterval)
	assert.Equal(t, 40*time.Second, s.lookahead)
}
