package service

import (
	"context"
	"testing"
	"time"

	"trimbook/internal/providers/errors"
	"trimbook/internal/providers/validator"
	"trimbook/pkg/config"
	apperrors "trimbook/pkg/errors"
	"trimbook/pkg/logger"
	"trimbook/pkg/model"
)

// Fake repository for testing

type fakeProviderRepo struct {
	providers map[string]*model.Provider

	updatedWeekly   map[string]model.DayHours
	updatedServices map[string]model.ServiceDefinition
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{providers: make(map[string]*model.Provider)}
}

func (f *fakeProviderRepo) Create(ctx context.Context, provider *model.Provider) error {
	if provider.ID == "" {
		provider.ID = "65f000000000000000000001"
	}
	provider.CreatedAt = time.Now().UTC()
	f.providers[provider.ID] = provider
	return nil
}

func (f *fakeProviderRepo) FindByID(ctx context.Context, id string) (*model.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return p, nil
}

func (f *fakeProviderRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Provider, error) {
	var result []*model.Provider
	for _, p := range f.providers {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakeProviderRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.providers)), nil
}

func (f *fakeProviderRepo) UpdateWeeklyAvailability(ctx context.Context, id string, weekly map[string]model.DayHours) error {
	if _, ok := f.providers[id]; !ok {
		return errors.ErrNotFound
	}
	f.updatedWeekly = weekly
	return nil
}

func (f *fakeProviderRepo) UpdateServices(ctx context.Context, id string, services map[string]model.ServiceDefinition) error {
	if _, ok := f.providers[id]; !ok {
		return errors.ErrNotFound
	}
	f.updatedServices = services
	return nil
}

func newTestService(t *testing.T) (ProviderService, *fakeProviderRepo) {
	t.Helper()
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
	repo := newFakeProviderRepo()
	svc := NewProviderService(repo, validator.NewProviderValidator(cfg.Log), cfg)
	return svc, repo
}

func validProvider() *model.Provider {
	return &model.Provider{
		Name: "John's Salon",
		WeeklyAvailability: map[string]model.DayHours{
			"monday": {IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
			"sunday": {IsOpen: false},
		},
		Services: map[string]model.ServiceDefinition{
			"haircut": {Name: "Haircut", Price: 30, DurationMinutes: 30},
		},
	}
}

func TestCreate_Valid(t *testing.T) {
	svc, repo := newTestService(t)

	provider := validProvider()
	if err := svc.Create(context.Background(), provider); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if _, ok := repo.providers[provider.ID]; !ok {
		t.Error("expected provider to be stored")
	}
}

func TestCreate_NormalizesNames(t *testing.T) {
	svc, _ := newTestService(t)

	provider := validProvider()
	provider.Name = "  John's   Salon  "
	provider.Services["haircut"] = model.ServiceDefinition{
		Name:            "  Haircut  Deluxe ",
		Price:           45,
		DurationMinutes: 45,
	}

	if err := svc.Create(context.Background(), provider); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.Name != "John's Salon" {
		t.Errorf("provider name = %q, want %q", provider.Name, "John's Salon")
	}
	if got := provider.Services["haircut"].Name; got != "Haircut Deluxe" {
		t.Errorf("service name = %q, want %q", got, "Haircut Deluxe")
	}
}

func TestCreate_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *model.Provider)
		errCode string
	}{
		{
			name:    "empty name",
			mutate:  func(p *model.Provider) { p.Name = "" },
			errCode: apperrors.CodeValidation,
		},
		{
			name: "open day missing times",
			mutate: func(p *model.Provider) {
				p.WeeklyAvailability["tuesday"] = model.DayHours{IsOpen: true}
			},
			errCode: apperrors.CodeInvalidAvailability,
		},
		{
			name: "unknown weekday key",
			mutate: func(p *model.Provider) {
				p.WeeklyAvailability["funday"] = model.DayHours{IsOpen: true, StartTime: "09:00", EndTime: "17:00"}
			},
			errCode: apperrors.CodeInvalidAvailability,
		},
		{
			name: "inverted hours",
			mutate: func(p *model.Provider) {
				p.WeeklyAvailability["monday"] = model.DayHours{IsOpen: true, StartTime: "17:00", EndTime: "09:00"}
			},
			errCode: apperrors.CodeInvalidAvailability,
		},
		{
			name: "zero duration service",
			mutate: func(p *model.Provider) {
				p.Services["haircut"] = model.ServiceDefinition{Name: "Haircut", Price: 30}
			},
			errCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			provider := validProvider()
			tt.mutate(provider)

			err := svc.Create(context.Background(), provider)
			if !apperrors.HasCode(err, tt.errCode) {
				t.Errorf("expected %s error, got %v", tt.errCode, err)
			}
		})
	}
}

func TestGetByID(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	got, err := svc.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != stored.Name {
		t.Errorf("name = %q, want %q", got.Name, stored.Name)
	}

	_, err = svc.GetByID(context.Background(), "65f000000000000000000099")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	_, err = svc.GetByID(context.Background(), "")
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for empty ID, got %v", err)
	}
}

func TestUpdateWeeklyAvailability(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	weekly := map[string]model.DayHours{
		"monday":  {IsOpen: true, StartTime: "10:00", EndTime: "18:00"},
		"tuesday": {IsOpen: false},
	}

	if err := svc.UpdateWeeklyAvailability(context.Background(), stored.ID, weekly); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.updatedWeekly == nil {
		t.Fatal("expected repository update to be called")
	}
	if got := repo.updatedWeekly["monday"].StartTime; got != "10:00" {
		t.Errorf("monday start = %q, want %q", got, "10:00")
	}
}

func TestUpdateWeeklyAvailability_RejectsInvalidWindow(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	tests := []struct {
		name   string
		weekly map[string]model.DayHours
	}{
		{
			name:   "start equals end",
			weekly: map[string]model.DayHours{"monday": {IsOpen: true, StartTime: "09:00", EndTime: "09:00"}},
		},
		{
			name:   "start after end",
			weekly: map[string]model.DayHours{"monday": {IsOpen: true, StartTime: "17:00", EndTime: "09:00"}},
		},
		{
			name:   "unpadded time",
			weekly: map[string]model.DayHours{"monday": {IsOpen: true, StartTime: "9:00", EndTime: "17:00"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpdateWeeklyAvailability(context.Background(), stored.ID, tt.weekly)
			if !apperrors.HasCode(err, apperrors.CodeInvalidAvailability) {
				t.Errorf("expected INVALID_AVAILABILITY, got %v", err)
			}
			if repo.updatedWeekly != nil {
				t.Error("repository must not be touched on validation failure")
			}
		})
	}
}

func TestUpdateWeeklyAvailability_ClosedDayIgnoresTimes(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	// A closed day carries no window; whatever times it has are irrelevant.
	weekly := map[string]model.DayHours{
		"sunday": {IsOpen: false},
	}

	if err := svc.UpdateWeeklyAvailability(context.Background(), stored.ID, weekly); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateServices(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	services := map[string]model.ServiceDefinition{
		"haircut": {Name: " Haircut ", Price: 35, DurationMinutes: 30},
		"shave":   {Name: "Hot Towel Shave", Price: 20, DurationMinutes: 15},
	}

	if err := svc.UpdateServices(context.Background(), stored.ID, services); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.updatedServices["haircut"].Name; got != "Haircut" {
		t.Errorf("service name = %q, want %q", got, "Haircut")
	}
}

func TestUpdateServices_Invalid(t *testing.T) {
	svc, repo := newTestService(t)

	stored := validProvider()
	stored.ID = "65f000000000000000000001"
	repo.providers[stored.ID] = stored

	err := svc.UpdateServices(context.Background(), stored.ID, map[string]model.ServiceDefinition{
		"": {Name: "Haircut", Price: 30, DurationMinutes: 30},
	})
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for empty service ID, got %v", err)
	}

	err = svc.UpdateServices(context.Background(), "65f000000000000000000099", map[string]model.ServiceDefinition{
		"haircut": {Name: "Haircut", Price: 30, DurationMinutes: 30},
	})
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown provider, got %v", err)
	}
}

func TestGetAll(t *testing.T) {
	svc, repo := newTestService(t)

	for _, id := range []string{"65f000000000000000000001", "65f000000000000000000002"} {
		p := validProvider()
		p.ID = id
		repo.providers[id] = p
	}

	providers, total, err := svc.GetAll(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(providers) != 2 {
		t.Errorf("expected 2 providers, got total=%d len=%d", total, len(providers))
	}
}
