package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"geostream/app/media"
	"geostream/app/repositories"
	"geostream/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testAPI struct {
	router *mux.Router
	media  *media.LocalStore
	posts  *services.PostService
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	db, err := repositories.OpenDB(repositories.Options{InMemory: true}, logger)
	require.NoError(t, err)
	store, err := repositories.NewStore(db, logger)
	require.NoError(t, err)
	mediaStore, err := media.NewLocalStore(filepath.Join(t.TempDir(), "media"), "/media", 1<<20, logger)
	require.NoError(t, err)

	postService := services.NewPostService(store, store, mediaStore, nil, logger)
	commentService := services.NewCommentService(store, store, postService.Sweeper(), nil, logger)
	flagService := services.NewFlagService(store, postService.Sweeper(), nil, logger)

	pc := NewPostController(postService, mediaStore, 1<<20, logger)
	cc := NewCommentController(commentService, logger)
	fc := NewFlagController(flagService, logger)

	// Register routes manually so the controllers are tested without middleware.
	router := mux.NewRouter()
	router.HandleFunc("/posts", pc.Create).Methods("POST")
	router.HandleFunc("/posts", pc.Index).Methods("GET")
	router.HandleFunc("/posts/range", pc.Range).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", pc.Show).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", pc.Delete).Methods("DELETE")
	router.HandleFunc("/posts/{id:[0-9]+}/comments", cc.ListByPost).Methods("GET")
	router.HandleFunc("/comments", cc.Create).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}", cc.Show).Methods("GET")
	router.HandleFunc("/comments/{id:[0-9]+}", cc.Delete).Methods("DELETE")
	router.HandleFunc("/flags", fc.Create).Methods("POST")
	router.HandleFunc("/flags", fc.Index).Methods("GET")
	router.HandleFunc("/flags/{id:[0-9]+}", fc.Show).Methods("GET")

	t.Cleanup(func() {
		postService.Wait()
		store.Close()
		db.Close()
	})
	return &testAPI{router: router, media: mediaStore, posts: postService}
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil && headers["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) doJSON(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return a.do(t, method, path, bytes.NewReader(data), nil)
}

type created struct {
	ID           uint64 `json:"id"`
	ClientSecret string `json:"client_secret"`
	Media        string `json:"media"`
	IsVideo      bool   `json:"is_video"`
}

func (a *testAPI) createPost(t *testing.T, lat, lng float64) created {
	t.Helper()
	w := a.doJSON(t, http.MethodPost, "/posts", map[string]interface{}{
		"lat":            lat,
		"lng":            lng,
		"media":          "https://cdn.example.com/a.jpg",
		"lifetime_hours": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	return c
}

func (a *testAPI) createComment(t *testing.T, postID uint64, content string) created {
	t.Helper()
	w := a.doJSON(t, http.MethodPost, "/comments", map[string]interface{}{
		"post":    postID,
		"content": content,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	return c
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}
