package routes

import (
	"encoding/json"
	"net/http"
	"strings"

	"geostream/app/controllers"
	"geostream/app/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Deps are the handlers and policies the router is assembled from.
type Deps struct {
	Posts    *controllers.PostController
	Comments *controllers.CommentController
	Flags    *controllers.FlagController

	// Media serves uploaded files under MediaPrefix. Nil disables it.
	Media       http.Handler
	MediaPrefix string

	// AllowedUserAgents, when non-empty, restricts /api to those clients.
	AllowedUserAgents []string
	// CreateLimiter throttles the create endpoints. Nil disables it.
	CreateLimiter *middleware.RateLimiter

	Logger *zap.Logger
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Deps) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	router.HandleFunc("/health", health).Methods("GET")

	if deps.Media != nil {
		prefix := deps.MediaPrefix
		if prefix == "" {
			prefix = "/media/"
		}
		router.PathPrefix(prefix).Handler(deps.Media).Methods("GET", "HEAD")
	}

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	if len(deps.AllowedUserAgents) > 0 {
		api.Use(middleware.UserAgentFilter(deps.AllowedUserAgents))
	}

	create := func(h http.HandlerFunc) http.Handler {
		if deps.CreateLimiter == nil {
			return h
		}
		return deps.CreateLimiter.Middleware(h)
	}

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", deps.Posts.Index).Methods("GET")
	posts.Handle("", create(deps.Posts.Create)).Methods("POST")
	posts.HandleFunc("/range", deps.Posts.Range).Methods("GET")
	posts.HandleFunc("/{id:[0-9]+}", deps.Posts.Show).Methods("GET")
	posts.HandleFunc("/{id:[0-9]+}", deps.Posts.Delete).Methods("DELETE")
	posts.HandleFunc("/{id:[0-9]+}/comments", deps.Comments.ListByPost).Methods("GET")

	// Comments API endpoints
	api.Handle("/comments", create(deps.Comments.Create)).Methods("POST")
	api.HandleFunc("/comments/{id:[0-9]+}", deps.Comments.Show).Methods("GET")
	api.HandleFunc("/comments/{id:[0-9]+}", deps.Comments.Delete).Methods("DELETE")

	// Flags API endpoints
	api.Handle("/flags", create(deps.Flags.Create)).Methods("POST")
	api.HandleFunc("/flags", deps.Flags.Index).Methods("GET")
	api.HandleFunc("/flags/{id:[0-9]+}", deps.Flags.Show).Methods("GET")

	return router
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	http.NotFound(w, r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
