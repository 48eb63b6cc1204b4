package controllers

import (
	"net/http"
	"strconv"

	"geostream/app/models"
	"geostream/app/services"

	"go.uber.org/zap"
)

// FlagController handles HTTP requests for moderation flags
type FlagController struct {
	flagService *services.FlagService
	logger      *zap.Logger
}

// NewFlagController creates a new FlagController
func NewFlagController(flagService *services.FlagService, logger *zap.Logger) *FlagController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlagController{flagService: flagService, logger: logger}
}

// Create records a flag. Flags carry no secret.
func (fc *FlagController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateFlagInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	flag, err := fc.flagService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	sendJSON(w, http.StatusCreated, flag)
}

// Index lists flags, optionally narrowed by resource_type and resource_id.
func (fc *FlagController) Index(w http.ResponseWriter, r *http.Request) {
	ref, err := resourceFilter(r)
	if err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	flags, err := fc.flagService.List(r.Context(), ref)
	if err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, flags)
}

// Show returns a single flag.
func (fc *FlagController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	flag, err := fc.flagService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, fc.logger, err)
		return
	}
	sendJSON(w, http.StatusOK, flag)
}

func resourceFilter(r *http.Request) (*models.ResourceRef, error) {
	query := r.URL.Query()
	rawType, rawID := query.Get("resource_type"), query.Get("resource_id")
	if rawType == "" && rawID == "" {
		return nil, nil
	}
	if rawType == "" {
		return nil, services.MissingParameter("resource_type")
	}
	if rawID == "" {
		return nil, services.MissingParameter("resource_id")
	}

	rt := models.ParseResourceType(rawType)
	if rt != models.ResourceTypePost && rt != models.ResourceTypeComment {
		return nil, &services.ValidationError{Field: "resource_type", Message: "must be one of [POST COMMENT]"}
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, &services.ValidationError{Field: "resource_id", Message: "must be a positive integer"}
	}
	return &models.ResourceRef{Type: rt, ID: id}, nil
}
