package templates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
)

// Service provides business logic for template management.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new templates service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create validates the layout and persists a new template.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateTemplateRequest) (*Template, error) {
	if _, err := layout.FromJSON(req.Layout); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	now := time.Now()
	tpl := &Template{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Layout:      datatypes.JSON(req.Layout),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	s.logger.Info("template created",
		zap.String("template_id", tpl.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return tpl, nil
}

// getOwned loads a template and hides it behind ErrTemplateNotFound when it
// belongs to someone else, so ids cannot be probed across owners.
func (s *Service) getOwned(ctx context.Context, ownerID, id uuid.UUID) (*Template, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.OwnerID != ownerID {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

// Get returns one of the owner's templates by id.
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Template, error) {
	return s.getOwned(ctx, ownerID, id)
}

// Layout deserializes and validates the stored layout of a template.
func (s *Service) Layout(ctx context.Context, ownerID, id uuid.UUID) (*layout.Layout, error) {
	tpl, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	l, err := layout.FromJSON(tpl.Layout)
	if err != nil {
		return nil, fmt.Errorf("stored layout for template %s is invalid: %w", id, err)
	}
	return l, nil
}

// List returns all templates owned by a user, most recently updated first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]Template, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Update applies a partial change to one of the owner's templates.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req *UpdateTemplateRequest) (*Template, error) {
	tpl, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if len(req.Layout) > 0 {
		if _, err := layout.FromJSON(req.Layout); err != nil {
			return nil, fmt.Errorf("invalid layout: %w", err)
		}
		tpl.Layout = datatypes.JSON(req.Layout)
	}
	tpl.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tpl, nil
}

// Delete removes one of the owner's templates.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
