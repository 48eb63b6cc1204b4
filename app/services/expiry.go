package services

import (
	"context"
	"errors"
	"time"

	"geostream/app/models"
	"geostream/app/repositories"

	"go.uber.org/zap"
)

// IsExpired reports whether post has outlived its lifetime at now. Elapsed
// time is counted in whole minutes, so a 1h post is still live at 59m59s.
func IsExpired(post *models.Post, now time.Time) bool {
	minutes := int64(now.Sub(post.Created) / time.Minute)
	return float64(minutes)/60.0 >= float64(post.LifetimeHours)
}

// Sweeper deletes expired posts with their comments and flags.
type Sweeper struct {
	store   repositories.PostRepository
	release func(*models.Post)
	now     func() time.Time
	logger  *zap.Logger
}

// NewSweeper creates a Sweeper. release is called for every removed post
// and may be nil.
func NewSweeper(store repositories.PostRepository, release func(*models.Post), now func() time.Time, logger *zap.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, release: release, now: now, logger: logger.Named("sweeper")}
}

// Sweep removes every post expired at a single instant and returns how many
// it removed. Posts removed concurrently by someone else are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, post := range posts {
		if !IsExpired(post, now) {
			continue
		}
		deleted, err := s.store.DeletePost(ctx, post.ID, func(p *models.Post) error {
			if !IsExpired(p, now) {
				return errNotExpired
			}
			return nil
		})
		if errors.Is(err, repositories.ErrNotFound) || errors.Is(err, errNotExpired) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
		if s.release != nil {
			s.release(deleted)
		}
	}

	if removed > 0 {
		s.logger.Info("expired posts removed", zap.Int("count", removed))
	}
	return removed, nil
}

var errNotExpired = errors.New("post not expired")

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
