package service

import (
	"context"
	"errors"
	"sync"
	providerserrors "trimbook/internal/providers/errors"
	"trimbook/internal/providers/repository"
	"trimbook/internal/providers/validator"
	"trimbook/pkg/config"
	apperrors "trimbook/pkg/errors"
	"trimbook/pkg/model"
	"trimbook/pkg/sanitizer"
)

type ProviderService interface {
	Create(ctx context.Context, provider *model.Provider) error
	GetByID(ctx context.Context, id string) (*model.Provider, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Provider, int64, error)
	UpdateWeeklyAvailability(ctx context.Context, id string, weekly map[string]model.DayHours) error
	UpdateServices(ctx context.Context, id string, services map[string]model.ServiceDefinition) error
}

type providerService struct {
	repo      repository.ProviderRepository
	validator *validator.ProviderValidator
	cfg       *config.Config
}

func NewProviderService(
	repo repository.ProviderRepository,
	validator *validator.ProviderValidator,
	cfg *config.Config,
) ProviderService {
	return &providerService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *providerService) Create(ctx context.Context, provider *model.Provider) error {
	s.sanitize(provider)

	if err := s.validator.Validate(provider); err != nil {
		s.cfg.Log.Warn("Provider validation failed", "error", err)
		return apperrors.Validation("Provider validation failed", map[string]any{"error": err.Error()})
	}
	if err := s.validator.ValidateWeeklyAvailability(provider.WeeklyAvailability); err != nil {
		s.cfg.Log.Warn("Weekly availability validation failed", "error", err)
		return apperrors.InvalidAvailability("Invalid weekly availability", map[string]any{"error": err.Error()})
	}
	if err := s.validator.ValidateServices(provider.Services); err != nil {
		s.cfg.Log.Warn("Provider services validation failed", "error", err)
		return apperrors.Validation("Provider validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, provider); err != nil {
		s.cfg.Log.Error("Failed to create provider", "error", err)
		return apperrors.Internal("Failed to create provider", err)
	}

	s.cfg.Log.Info("Provider created successfully",
		"id", provider.ID,
		"name", provider.Name,
	)
	return nil
}

func (s *providerService) GetByID(ctx context.Context, id string) (*model.Provider, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}

	provider, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, providerserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Provider", id)
		}
		if errors.Is(err, providerserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid provider ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve provider", err)
	}

	return provider, nil
}

func (s *providerService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Provider, int64, error) {
	var count int64
	var providers []*model.Provider
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count providers", "error", errCount)
			errCount = apperrors.Internal("Failed to count providers", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		providers, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list providers", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve providers", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return providers, count, nil
}

func (s *providerService) UpdateWeeklyAvailability(ctx context.Context, id string, weekly map[string]model.DayHours) error {
	if id == "" {
		return apperrors.InvalidInput("Provider ID cannot be empty")
	}

	if err := s.validator.ValidateWeeklyAvailability(weekly); err != nil {
		s.cfg.Log.Warn("Weekly availability validation failed", "id", id, "error", err)
		return apperrors.InvalidAvailability("Invalid weekly availability", map[string]any{"error": err.Error()})
	}

	if err := s.repo.UpdateWeeklyAvailability(ctx, id, weekly); err != nil {
		return s.translateUpdateError(id, err, "Failed to update weekly availability")
	}

	s.cfg.Log.Info("Weekly availability updated successfully", "id", id)
	return nil
}

func (s *providerService) UpdateServices(ctx context.Context, id string, services map[string]model.ServiceDefinition) error {
	if id == "" {
		return apperrors.InvalidInput("Provider ID cannot be empty")
	}

	sanitized := make(map[string]model.ServiceDefinition, len(services))
	for svcID, svc := range services {
		svc.Name = sanitizer.NormalizeServiceName(svc.Name)
		sanitized[svcID] = svc
	}

	if err := s.validator.ValidateServices(sanitized); err != nil {
		s.cfg.Log.Warn("Services validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid service catalogue", map[string]any{"error": err.Error()})
	}

	if err := s.repo.UpdateServices(ctx, id, sanitized); err != nil {
		return s.translateUpdateError(id, err, "Failed to update services")
	}

	s.cfg.Log.Info("Service catalogue updated successfully", "id", id, "services", len(sanitized))
	return nil
}

func (s *providerService) sanitize(p *model.Provider) {
	p.Name = sanitizer.NormalizeName(p.Name)
	if p.Services != nil {
		for id, svc := range p.Services {
			svc.Name = sanitizer.NormalizeServiceName(svc.Name)
			p.Services[id] = svc
		}
	}
}

func (s *providerService) translateUpdateError(id string, err error, message string) error {
	if errors.Is(err, providerserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Provider", id)
	}
	if errors.Is(err, providerserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid provider ID format")
	}
	s.cfg.Log.Error(message, "id", id, "error", err)
	return apperrors.Internal(message, err)
}
