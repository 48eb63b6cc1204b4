package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"geostream/app/controllers"
	"geostream/app/media"
	"geostream/app/middleware"
	"geostream/app/repositories"
	"geostream/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUA = "Geostream/1 (Android)"

func setupTestRouter(t *testing.T, configure func(*Deps)) (*mux.Router, *media.LocalStore) {
	t.Helper()
	logger := zap.NewNop()

	db, err := repositories.OpenDB(repositories.Options{InMemory: true}, logger)
	require.NoError(t, err)
	store, err := repositories.NewStore(db, logger)
	require.NoError(t, err)
	mediaStore, err := media.NewLocalStore(filepath.Join(t.TempDir(), "media"), "/media", 0, logger)
	require.NoError(t, err)

	postService := services.NewPostService(store, store, mediaStore, nil, logger)
	commentService := services.NewCommentService(store, store, postService.Sweeper(), nil, logger)
	flagService := services.NewFlagService(store, postService.Sweeper(), nil, logger)

	deps := Deps{
		Posts:       controllers.NewPostController(postService, mediaStore, 0, logger),
		Comments:    controllers.NewCommentController(commentService, logger),
		Flags:       controllers.NewFlagController(flagService, logger),
		Media:       mediaStore.Handler("/media/"),
		MediaPrefix: "/media/",
		Logger:      logger,
	}
	if configure != nil {
		configure(&deps)
	}

	t.Cleanup(func() {
		postService.Wait()
		store.Close()
		db.Close()
	})
	return SetupRoutes(deps), mediaStore
}

func send(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", testUA)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter(t, nil)
	w := send(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAPIRoundTrip(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	w := send(router, http.MethodPost, "/api/posts", `{"lat":40.7,"lng":-74.0,"media":"https://cdn.example.com/x.jpg","lifetime_hours":1}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var post struct {
		ID           uint64 `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = send(router, http.MethodPost, "/api/comments", fmt.Sprintf(`{"post":%d,"content":"hey"}`, post.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(router, http.MethodPost, "/api/flags", fmt.Sprintf(`{"resource_type":"PST","resource_id":%d,"reason":"SP"}`, post.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(router, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var posts []struct {
		ID       uint64            `json:"id"`
		Comments []json.RawMessage `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Len(t, posts[0].Comments, 1)
	assert.NotContains(t, w.Body.String(), post.ClientSecret)

	w = send(router, http.MethodGet, "/api/posts/range?fromLat=40&toLat=41&fromLng=-75&toLng=-73", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"id":%d`, post.ID))

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	w = send(router, http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = send(router, http.MethodDelete, path, "", map[string]string{controllers.SecretHeader: post.ClientSecret})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = send(router, http.MethodGet, "/api/flags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNotFound(t *testing.T) {
	router, _ := setupTestRouter(t, nil)

	w := send(router, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestUserAgentAllowList(t *testing.T) {
	router, _ := setupTestRouter(t, func(d *Deps) {
		d.AllowedUserAgents = []string{testUA}
	})

	w := send(router, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(router, http.MethodGet, "/api/posts", "", map[string]string{"User-Agent": "Mozilla/5.0"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(router, http.MethodGet, "/health", "", map[string]string{"User-Agent": "Mozilla/5.0"})
	assert.Equal(t, http.StatusOK, w.Code, "health checks are not filtered")
}

func TestCreateRateLimit(t *testing.T) {
	router, _ := setupTestRouter(t, func(d *Deps) {
		d.CreateLimiter = middleware.NewRateLimiter(2)
	})

	body := `{"lat":1,"lng":1,"media":"m","lifetime_hours":1}`
	w := send(router, http.MethodPost, "/api/posts", body, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = send(router, http.MethodPost, "/api/posts", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = send(router, http.MethodGet, "/api/posts", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

func TestMediaIsServed(t *testing.T) {
	router, store := setupTestRouter(t, nil)
	ref, _, err := store.Save(context.Background(), "pic.png", strings.NewReader("png!"))
	require.NoError(t, err)

	w := send(router, http.MethodGet, ref, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png!", w.Body.String())
}
