package controllers

import (
	"net/http"

	"geostream/app/models"
	"geostream/app/services"

	"go.uber.org/zap"
)

type createdComment struct {
	*models.Comment
	ClientSecret string `json:"client_secret"`
}

// CommentController handles HTTP requests for comments
type CommentController struct {
	commentService *services.CommentService
	logger         *zap.Logger
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentController{commentService: commentService, logger: logger}
}

// Create adds a comment to a live post.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateCommentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, cc.logger, err)
		return
	}

	comment, secret, err := cc.commentService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, createdComment{Comment: comment, ClientSecret: secret})
}

// Show returns a single comment.
func (cc *CommentController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	comment, err := cc.commentService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

// ListByPost returns the comments of the post in the path.
func (cc *CommentController) ListByPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	comments, err := cc.commentService.ListByPost(r.Context(), id)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, comments)
}

// Delete removes a comment when the request carries its secret.
func (cc *CommentController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	if err := cc.commentService.Delete(r.Context(), id, secretFrom(r)); err != nil {
		writeError(w, r, cc.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
