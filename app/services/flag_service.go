package services

import (
	"context"
	"time"

	"geostream/app/models"
	"geostream/app/repositories"

	"go.uber.org/zap"
)

// CreateFlagInput is a moderation report submitted by a client. Short
// codes such as "PST" or "SP" are accepted for the type and reason.
type CreateFlagInput struct {
	ResourceType models.ResourceType `json:"resource_type"`
	ResourceID   uint64              `json:"resource_id"`
	Reason       models.Reason       `json:"reason"`
}

// FlagService handles business logic for flags
type FlagService struct {
	flags   repositories.FlagRepository
	sweeper *Sweeper
	now     func() time.Time
	logger  *zap.Logger
}

// NewFlagService creates a new FlagService
func NewFlagService(flags repositories.FlagRepository, sweeper *Sweeper, now func() time.Time, logger *zap.Logger) *FlagService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlagService{flags: flags, sweeper: sweeper, now: now, logger: logger.Named("flags")}
}

// Create records a flag against a live post or comment.
func (s *FlagService) Create(ctx context.Context, in CreateFlagInput) (*models.Flag, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}

	flag := &models.Flag{
		ResourceType: in.ResourceType,
		ResourceID:   in.ResourceID,
		Reason:       in.Reason,
	}
	flag.BeforeCreate(s.now())

	if err := s.flags.CreateFlag(ctx, flag); err != nil {
		return nil, asValidationError(err)
	}

	s.logger.Info("flag created",
		zap.Uint64("flag_id", flag.ID),
		zap.Stringer("resource", flag.Resource()),
		zap.String("reason", string(flag.Reason)))
	return flag, nil
}

// Get retrieves a flag by ID
func (s *FlagService) Get(ctx context.Context, id uint64) (*models.Flag, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.flags.GetFlag(ctx, id)
}

// List returns all flags, or only those against ref when it is non-nil.
func (s *FlagService) List(ctx context.Context, ref *models.ResourceRef) ([]*models.Flag, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	if ref != nil {
		return s.flags.ListFlagsByResource(ctx, *ref)
	}
	return s.flags.ListFlags(ctx)
}
