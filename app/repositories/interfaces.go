package repositories

import (
	"context"

	"geostream/app/models"
)

// PostCheck is evaluated against the stored post inside the delete
// transaction; a non-nil error aborts the delete untouched.
type PostCheck func(post *models.Post) error

// CommentCheck is the comment counterpart of PostCheck.
type CommentCheck func(comment *models.Comment) error

// PostRepository defines the interface for post data access
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uint64) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	DeletePost(ctx context.Context, id uint64, check PostCheck) (*models.Post, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uint64) (*models.Comment, error)
	ListCommentsByPost(ctx context.Context, postID uint64) ([]*models.Comment, error)
	DeleteComment(ctx context.Context, id uint64, check CommentCheck) (*models.Comment, error)
}

// FlagRepository defines the interface for flag data access. Flags are only
// removed through the cascades of DeletePost and DeleteComment.
type FlagRepository interface {
	CreateFlag(ctx context.Context, flag *models.Flag) error
	GetFlag(ctx context.Context, id uint64) (*models.Flag, error)
	ListFlags(ctx context.Context) ([]*models.Flag, error)
	ListFlagsByResource(ctx context.Context, ref models.ResourceRef) ([]*models.Flag, error)
}

var (
	_ PostRepository    = (*Store)(nil)
	_ CommentRepository = (*Store)(nil)
	_ FlagRepository    = (*Store)(nil)
)
