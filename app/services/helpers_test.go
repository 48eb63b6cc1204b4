package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"geostream/app/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMedia struct {
	mu       sync.Mutex
	released []string
	fail     bool
}

func (m *fakeMedia) Save(ctx context.Context, filename string, r io.Reader) (string, bool, error) {
	return "/media/" + filename, false, nil
}

func (m *fakeMedia) Release(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("disk on fire")
	}
	m.released = append(m.released, ref)
	return nil
}

func (m *fakeMedia) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

type testEnv struct {
	store    *repositories.Store
	posts    *PostService
	comments *CommentService
	flags    *FlagService
	clock    *fakeClock
	media    *fakeMedia
}

func setupEnv(t *testing.T) *testEnv {
	return setupEnvWithLogger(t, zap.NewNop())
}

func setupEnvWithLogger(t *testing.T, logger *zap.Logger) *testEnv {
	t.Helper()
	db, err := repositories.OpenDB(repositories.Options{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	store, err := repositories.NewStore(db, zap.NewNop())
	require.NoError(t, err)

	env := &testEnv{store: store, clock: newFakeClock(), media: &fakeMedia{}}
	env.posts = NewPostService(store, store, env.media, env.clock.Now, logger)
	env.comments = NewCommentService(store, store, env.posts.Sweeper(), env.clock.Now, logger)
	env.flags = NewFlagService(store, env.posts.Sweeper(), env.clock.Now, logger)

	t.Cleanup(func() {
		env.posts.Wait()
		store.Close()
		db.Close()
	})
	return env
}

func ptr(f float64) *float64 {
	return &f
}

func postInput(lat, lng float64, hours int) CreatePostInput {
	return CreatePostInput{
		Lat:           ptr(lat),
		Lng:           ptr(lng),
		Media:         "/media/pic.jpg",
		LifetimeHours: hours,
		Uploaded:      true,
	}
}
