package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"geostream/app/models"
	"geostream/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	post, _, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		comment, secret, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "  great spot  "})
		require.NoError(t, err)
		assert.NotEmpty(t, secret)
		assert.Equal(t, "great spot", comment.Content)
		assert.Equal(t, post.ID, comment.PostID)
		assert.Equal(t, Digest(secret), comment.SecretDigest)
	})

	t.Run("markup is stripped", func(t *testing.T) {
		comment, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "<b>bold</b> move<script>alert(1)</script>"})
		require.NoError(t, err)
		assert.Equal(t, "bold move", comment.Content)
	})

	t.Run("only markup", func(t *testing.T) {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "<img src=x>"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "content", verr.Field)
	})

	t.Run("too long", func(t *testing.T) {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: strings.Repeat("a", 201)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "content", verr.Field)
	})

	t.Run("longest allowed", func(t *testing.T) {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: strings.Repeat("a", 200)})
		assert.NoError(t, err)
	})

	t.Run("missing post id", func(t *testing.T) {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{Content: "hello"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "post", verr.Field)
	})

	t.Run("unknown post", func(t *testing.T) {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID + 500, Content: "hello"})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestCreateCommentOnExpiredPost(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	post, _, err := env.posts.Create(ctx, postInput(1, 1, 1))
	require.NoError(t, err)
	earlier, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "early"})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)

	_, _, err = env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "too late"})
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = env.store.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound, "the expired post was swept")
	_, err = env.store.GetComment(ctx, earlier.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestListCommentsByPost(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	post, _, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		_, _, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: text})
		require.NoError(t, err)
	}

	comments, err := env.comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "one", comments[0].Content)
	assert.Equal(t, "three", comments[2].Content)
	assert.True(t, comments[0].Created.Before(comments[1].Created), "same-instant comments are ordered")

	_, err = env.comments.ListByPost(ctx, post.ID+9)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDeleteComment(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	post, postSecret, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)
	comment, secret, err := env.comments.Create(ctx, CreateCommentInput{PostID: post.ID, Content: "oops"})
	require.NoError(t, err)
	flag, err := env.flags.Create(ctx, CreateFlagInput{ResourceType: models.ResourceTypeComment, ResourceID: comment.ID, Reason: models.ReasonInappropriateContent})
	require.NoError(t, err)

	assert.ErrorIs(t, env.comments.Delete(ctx, comment.ID, ""), ErrForbidden)
	assert.ErrorIs(t, env.comments.Delete(ctx, comment.ID, postSecret), ErrForbidden)
	assert.ErrorIs(t, env.comments.Delete(ctx, comment.ID+70, secret), repositories.ErrNotFound)

	require.NoError(t, env.comments.Delete(ctx, comment.ID, secret))

	_, err = env.comments.Get(ctx, comment.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = env.flags.Get(ctx, flag.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = env.posts.Get(ctx, post.ID)
	assert.NoError(t, err)
}
