package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"geostream/app/media"
	"geostream/app/repositories"
	"geostream/app/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SecretHeader carries the capability secret on delete requests.
const SecretHeader = "ClientSecret"

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message, field string) {
	sendJSON(w, status, errorResponse{Error: message, Field: field})
}

// writeError maps service and store errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		sendError(w, http.StatusBadRequest, verr.Message, verr.Field)
	case errors.Is(err, repositories.ErrNotFound):
		sendError(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, services.ErrForbidden):
		sendError(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, media.ErrTooLarge):
		sendError(w, http.StatusRequestEntityTooLarge, "media file too large", "media_file")
	case errors.Is(err, media.ErrUnsupportedType):
		sendError(w, http.StatusBadRequest, "unsupported media type", "media_file")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		sendError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v); err != nil {
		return &services.ValidationError{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: "id", Message: "invalid id"}
	}
	return id, nil
}

// secretFrom returns the capability secret from the ClientSecret header,
// falling back to a client_secret field in a JSON body.
func secretFrom(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(SecretHeader)); s != "" {
		return s
	}
	if r.Body == nil || r.ContentLength == 0 {
		return ""
	}
	var body struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.ClientSecret)
}

// optionalFloat parses a query or form value. An absent value is nil.
func optionalFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "must be a number"}
	}
	return &f, nil
}
