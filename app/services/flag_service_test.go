package services

import (
	"context"
	"encoding/json"
	"testing"

	"geostream/app/models"
	"geostream/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFlag(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	post, _, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)

	t.Run("short codes", func(t *testing.T) {
		var in CreateFlagInput
		body := []byte(`{"resource_type":"PST","resource_id":` + jsonID(post.ID) + `,"reason":"vb"}`)
		require.NoError(t, json.Unmarshal(body, &in))

		flag, err := env.flags.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, models.ResourceTypePost, flag.ResourceType)
		assert.Equal(t, models.ReasonViolenceOrBullying, flag.Reason)
		assert.True(t, epoch.Equal(flag.Created))
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := env.flags.Create(ctx, CreateFlagInput{ResourceType: models.ResourceTypeComment, ResourceID: 1234, Reason: models.ReasonSpam})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("bad reason", func(t *testing.T) {
		_, err := env.flags.Create(ctx, CreateFlagInput{ResourceType: models.ResourceTypePost, ResourceID: post.ID, Reason: "BORING"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "reason", verr.Field)
	})

	t.Run("bad type", func(t *testing.T) {
		_, err := env.flags.Create(ctx, CreateFlagInput{ResourceType: "USER", ResourceID: post.ID, Reason: models.ReasonSpam})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "resource_type", verr.Field)
	})
}

func TestListFlags(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	a, _, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)
	b, _, err := env.posts.Create(ctx, postInput(1, 1, 2))
	require.NoError(t, err)

	for _, id := range []uint64{a.ID, a.ID, b.ID} {
		_, err := env.flags.Create(ctx, CreateFlagInput{ResourceType: models.ResourceTypePost, ResourceID: id, Reason: models.ReasonSpam})
		require.NoError(t, err)
	}

	all, err := env.flags.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ref := a.Resource()
	onA, err := env.flags.List(ctx, &ref)
	require.NoError(t, err)
	assert.Len(t, onA, 2)
}

func jsonID(id uint64) string {
	data, _ := json.Marshal(id)
	return string(data)
}
