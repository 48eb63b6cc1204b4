package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geostream/app/media"
	"geostream/app/models"
	"geostream/app/repositories"

	"go.uber.org/zap"
)

// mediaReleaseTimeout bounds a single background media release.
const mediaReleaseTimeout = 30 * time.Second

// CreatePostInput is what a client submits to publish a post. Coordinates
// are pointers so a missing value can be told apart from zero.
type CreatePostInput struct {
	Lat           *float64 `json:"lat" validate:"required"`
	Lng           *float64 `json:"lng" validate:"required"`
	Media         string   `json:"media"`
	IsVideo       bool     `json:"is_video"`
	LifetimeHours int      `json:"lifetime_hours"`

	// Uploaded marks Media as a file the media store saved for this
	// request. Only such files are released when the post goes away.
	Uploaded bool `json:"-"`
}

// RangeQuery is an inclusive bounding box. Every bound is required.
type RangeQuery struct {
	FromLat *float64
	ToLat   *float64
	FromLng *float64
	ToLng   *float64
}

// PostService handles business logic for posts
type PostService struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	media    media.Store
	sweeper  *Sweeper
	now      func() time.Time
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewPostService creates a new PostService. mediaStore may be nil when
// media references are never released; now defaults to time.Now.
func NewPostService(posts repositories.PostRepository, comments repositories.CommentRepository, mediaStore media.Store, now func() time.Time, logger *zap.Logger) *PostService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PostService{
		posts:    posts,
		comments: comments,
		media:    mediaStore,
		now:      now,
		logger:   logger.Named("posts"),
	}
	s.sweeper = NewSweeper(posts, s.releaseMedia, now, logger)
	return s
}

// Sweeper returns the sweeper all read paths share.
func (s *PostService) Sweeper() *Sweeper {
	return s.sweeper
}

// Create publishes a post and returns it with its one-time secret.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, string, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, "", asValidationError(err)
	}

	secret, digest, err := IssueSecret()
	if err != nil {
		return nil, "", err
	}

	post := &models.Post{
		Lat:           *in.Lat,
		Lng:           *in.Lng,
		Media:         in.Media,
		IsVideo:       in.IsVideo,
		LifetimeHours: in.LifetimeHours,
		SecretDigest:  digest,
		OwnsMedia:     in.Uploaded,
	}
	post.BeforeCreate(s.now())

	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, "", asValidationError(err)
	}

	s.logger.Info("post created",
		zap.Uint64("post_id", post.ID),
		zap.Int("lifetime_hours", post.LifetimeHours),
		zap.Bool("is_video", post.IsVideo))
	return post, secret, nil
}

// List returns every live post with its comments, oldest first.
func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Get retrieves a live post by ID with its comments
func (s *PostService) Get(ctx context.Context, id uint64) (*models.Post, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachComments(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// QueryRange returns live posts inside the box, bounds included, oldest
// first. The box does not wrap around the antimeridian.
func (s *PostService) QueryRange(ctx context.Context, q RangeQuery) ([]*models.Post, error) {
	for _, b := range []struct {
		name string
		v    *float64
	}{
		{"fromLat", q.FromLat},
		{"toLat", q.ToLat},
		{"fromLng", q.FromLng},
		{"toLng", q.ToLng},
	} {
		if b.v == nil {
			return nil, MissingParameter(b.name)
		}
	}

	posts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := []*models.Post{}
	for _, p := range posts {
		if *q.FromLat <= p.Lat && p.Lat <= *q.ToLat &&
			*q.FromLng <= p.Lng && p.Lng <= *q.ToLng {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Delete removes a post and everything attached to it if secret proves
// ownership. Unknown ids report repositories.ErrNotFound, a wrong secret
// ErrForbidden.
func (s *PostService) Delete(ctx context.Context, id uint64, secret string) error {
	deleted, err := s.posts.DeletePost(ctx, id, func(p *models.Post) error {
		return Authorize(p.SecretDigest, secret)
	})
	if err != nil {
		return err
	}
	s.logger.Info("post deleted", zap.Uint64("post_id", id))
	s.releaseMedia(deleted)
	return nil
}

// Wait blocks until pending media releases finish.
func (s *PostService) Wait() {
	s.wg.Wait()
}

// releaseMedia frees the media of a removed post in the background. Media
// the post merely references is left alone. Failures are logged and
// otherwise ignored.
func (s *PostService) releaseMedia(post *models.Post) {
	if s.media == nil || post == nil || !post.OwnsMedia || post.Media == "" {
		return
	}
	s.wg.Add(1)
	go func(id uint64, ref string) {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mediaReleaseTimeout)
		defer cancel()
		if err := s.media.Release(ctx, ref); err != nil {
			s.logger.Warn("media release failed",
				zap.Uint64("post_id", id),
				zap.String("media", ref),
				zap.Error(err))
		}
	}(post.ID, post.Media)
}

func (s *PostService) attachComments(ctx context.Context, posts []*models.Post) error {
	for _, post := range posts {
		comments, err := s.comments.ListCommentsByPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("failed to get comments for post %d: %w", post.ID, err)
		}
		post.Comments = comments
	}
	return nil
}
