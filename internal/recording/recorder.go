// Package recording implements the conversation-recording workflow: a user
// starts capture in a group chat, later stops it, and the bot answers with
// a summary of the recorded window plus a shopping/packing list enriched
// with catalog products.
package recording

import (
	"log/slog"
	"time"

	"recapbot/internal/domain"
)

const (
	// recentWindowLimit bounds the synthetic window built when stop
	// arrives without a prior start.
	defaultRecentWindowLimit = 100
	defaultParallelLookups   = 4
)

// Recorder holds the shared dependencies of the start and stop handlers.
type Recorder struct {
	store           domain.Store
	summarizer      domain.Summarizer
	enricher        domain.Enricher
	recentLimit     int
	parallelLookups int
	pendingMaxAge   time.Duration // 0 = pending records never expire
	now             func() int64
	logger          *slog.Logger
}

// RecorderConfig holds dependencies and tuning for the recording workflow.
type RecorderConfig struct {
	Store             domain.Store
	Summarizer        domain.Summarizer
	Enricher          domain.Enricher
	RecentWindowLimit int
	ParallelLookups   int
	PendingMaxAge     time.Duration
	Now               func() int64 // override for tests
	Logger            *slog.Logger
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.RecentWindowLimit <= 0 {
		cfg.RecentWindowLimit = defaultRecentWindowLimit
	}
	if cfg.ParallelLookups <= 0 {
		cfg.ParallelLookups = defaultParallelLookups
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().Unix() }
	}
	return &Recorder{
		store:           cfg.Store,
		summarizer:      cfg.Summarizer,
		enricher:        cfg.Enricher,
		recentLimit:     cfg.RecentWindowLimit,
		parallelLookups: cfg.ParallelLookups,
		pendingMaxAge:   cfg.PendingMaxAge,
		now:             cfg.Now,
		logger:          cfg.Logger,
	}
}
