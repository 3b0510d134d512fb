package procedure

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cliniops/cliniops/internal/platform/artifact"
)

// ArtifactSweeper retries deletes of staged artifacts that survived
// compensation. The saga hands it each path it failed to delete; the cleanup
// trigger drains the backlog on its schedule. Paths that still cannot be
// deleted stay queued until maxAge has passed since they were first queued,
// after which the sweeper gives up and logs the path for manual cleanup.
type ArtifactSweeper struct {
	store  artifact.Store
	maxAge time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	pending []orphan
}

type orphan struct {
	path   string
	queued time.Time
}

func NewArtifactSweeper(store artifact.Store, maxAge time.Duration, logger zerolog.Logger) *ArtifactSweeper {
	return &ArtifactSweeper{store: store, maxAge: maxAge, logger: logger}
}

func (s *ArtifactSweeper) Name() string { return "orphan_artifacts" }

// Add queues a path for a later deletion retry.
func (s *ArtifactSweeper) Add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, orphan{path: path, queued: time.Now()})
}

// Pending returns the current backlog size.
func (s *ArtifactSweeper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run attempts every queued delete once and returns how many succeeded.
func (s *ArtifactSweeper) Run(ctx context.Context) (int, error) {
	s.mu.Lock()
	backlog := s.pending
	s.pending = nil
	s.mu.Unlock()

	removed := 0
	for _, o := range backlog {
		if err := s.store.Delete(ctx, o.path); err != nil {
			if s.maxAge > 0 && time.Since(o.queued) > s.maxAge {
				s.logger.Error().Err(err).Str("path", o.path).
					Msg("giving up on orphan artifact, manual cleanup needed")
				continue
			}
			s.logger.Warn().Err(err).Str("path", o.path).Msg("orphan artifact delete failed, requeueing")
			s.requeue(o)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *ArtifactSweeper) requeue(o orphan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, o)
}
