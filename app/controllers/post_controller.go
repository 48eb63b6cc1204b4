package controllers

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"geostream/app/media"
	"geostream/app/models"
	"geostream/app/services"

	"go.uber.org/zap"
)

// createdPost is the create response: the only place a post secret is ever
// returned.
type createdPost struct {
	*models.Post
	ClientSecret string `json:"client_secret"`
}

// PostController handles HTTP requests for posts
type PostController struct {
	postService *services.PostService
	media       media.Store
	maxUpload   int64
	logger      *zap.Logger
}

// NewPostController creates a new PostController. mediaStore may be nil,
// in which case only JSON posts that reference existing media are accepted.
func NewPostController(postService *services.PostService, mediaStore media.Store, maxUpload int64, logger *zap.Logger) *PostController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &PostController{
		postService: postService,
		media:       mediaStore,
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

// Index lists live posts with their comments.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.List(r.Context())
	if err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, posts)
}

// Range lists live posts inside the fromLat/toLat/fromLng/toLng box.
func (pc *PostController) Range(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var q services.RangeQuery
	for _, b := range []struct {
		name string
		dst  **float64
	}{
		{"fromLat", &q.FromLat},
		{"toLat", &q.ToLat},
		{"fromLng", &q.FromLng},
		{"toLng", &q.ToLng},
	} {
		v, err := optionalFloat(b.name, query.Get(b.name))
		if err != nil {
			writeError(w, r, pc.logger, err)
			return
		}
		*b.dst = v
	}

	posts, err := pc.postService.QueryRange(r.Context(), q)
	if err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, posts)
}

// Show returns a single live post.
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	post, err := pc.postService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create publishes a post from a JSON body or a multipart upload carrying
// the file in media_file.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreatePostInput
	var uploaded string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		in, uploaded, err = pc.parseMultipart(w, r)
		if err != nil {
			writeError(w, r, pc.logger, err)
			return
		}
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, pc.logger, err)
		return
	}

	post, secret, err := pc.postService.Create(r.Context(), in)
	if err != nil {
		if uploaded != "" {
			if rerr := pc.media.Release(context.WithoutCancel(r.Context()), uploaded); rerr != nil {
				pc.logger.Warn("orphaned upload", zap.String("media", uploaded), zap.Error(rerr))
			}
		}
		writeError(w, r, pc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, createdPost{Post: post, ClientSecret: secret})
}

func (pc *PostController) parseMultipart(w http.ResponseWriter, r *http.Request) (services.CreatePostInput, string, error) {
	var in services.CreatePostInput

	r.Body = http.MaxBytesReader(w, r.Body, pc.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(pc.maxUpload); err != nil {
		return in, "", &services.ValidationError{Message: "invalid multipart form: " + err.Error()}
	}

	var err error
	if in.Lat, err = optionalFloat("lat", r.FormValue("lat")); err != nil {
		return in, "", err
	}
	if in.Lng, err = optionalFloat("lng", r.FormValue("lng")); err != nil {
		return in, "", err
	}
	if raw := strings.TrimSpace(r.FormValue("lifetime_hours")); raw != "" {
		if in.LifetimeHours, err = strconv.Atoi(raw); err != nil {
			return in, "", &services.ValidationError{Field: "lifetime_hours", Message: "must be an integer"}
		}
	}
	in.IsVideo, _ = strconv.ParseBool(r.FormValue("is_video"))
	in.Media = strings.TrimSpace(r.FormValue("media"))

	file, header, err := r.FormFile("media_file")
	if err == http.ErrMissingFile {
		return in, "", nil
	}
	if err != nil {
		return in, "", &services.ValidationError{Field: "media_file", Message: err.Error()}
	}
	defer file.Close()

	if pc.media == nil {
		return in, "", &services.ValidationError{Field: "media_file", Message: "uploads are disabled"}
	}
	ref, isVideo, err := pc.media.Save(r.Context(), header.Filename, file)
	if err != nil {
		return in, "", err
	}
	in.Media = ref
	in.Uploaded = true
	in.IsVideo = in.IsVideo || isVideo
	return in, ref, nil
}

// Delete removes a post when the request carries its secret.
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	if err := pc.postService.Delete(r.Context(), id, secretFrom(r)); err != nil {
		writeError(w, r, pc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
