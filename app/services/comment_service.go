package services

import (
	"context"
	"strings"
	"time"

	"geostream/app/models"
	"geostream/app/repositories"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var commentPolicy = bluemonday.StrictPolicy()

// CreateCommentInput is what a client submits to comment on a post.
type CreateCommentInput struct {
	PostID  uint64 `json:"post" validate:"required"`
	Content string `json:"content"`
}

// CommentService handles business logic for comments
type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	sweeper  *Sweeper
	now      func() time.Time
	logger   *zap.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(comments repositories.CommentRepository, posts repositories.PostRepository, sweeper *Sweeper, now func() time.Time, logger *zap.Logger) *CommentService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		comments: comments,
		posts:    posts,
		sweeper:  sweeper,
		now:      now,
		logger:   logger.Named("comments"),
	}
}

// Create adds a comment to a live post and returns it with its one-time
// secret. Markup is stripped from the content.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, string, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, "", asValidationError(err)
	}

	// An expired post must look gone, so sweep before the store checks
	// that the post exists.
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, "", err
	}

	secret, digest, err := IssueSecret()
	if err != nil {
		return nil, "", err
	}

	comment := &models.Comment{
		PostID:       in.PostID,
		Content:      strings.TrimSpace(commentPolicy.Sanitize(in.Content)),
		SecretDigest: digest,
	}
	comment.BeforeCreate(s.now())

	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, "", asValidationError(err)
	}

	s.logger.Info("comment created",
		zap.Uint64("comment_id", comment.ID),
		zap.Uint64("post_id", comment.PostID))
	return comment, secret, nil
}

// Get retrieves a comment of a live post by ID
func (s *CommentService) Get(ctx context.Context, id uint64) (*models.Comment, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.comments.GetComment(ctx, id)
}

// ListByPost returns the comments of a live post, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID uint64) ([]*models.Comment, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListCommentsByPost(ctx, postID)
}

// Delete removes a comment and its flags if secret proves ownership.
func (s *CommentService) Delete(ctx context.Context, id uint64, secret string) error {
	_, err := s.comments.DeleteComment(ctx, id, func(c *models.Comment) error {
		return Authorize(c.SecretDigest, secret)
	})
	if err != nil {
		return err
	}
	s.logger.Info("comment deleted", zap.Uint64("comment_id", id))
	return nil
}
