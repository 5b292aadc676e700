package service

import (
	"context"
	"errors"
	"sort"
	"time"
	availabilityerrors "trimbook/internal/availability/errors"
	"trimbook/internal/availability/repository"
	providerserrors "trimbook/internal/providers/errors"
	providersrepo "trimbook/internal/providers/repository"
	"trimbook/pkg/cache"
	"trimbook/pkg/config"
	apperrors "trimbook/pkg/errors"
	"trimbook/pkg/model"
)

type AvailabilityService interface {
	ListBookableSlots(ctx context.Context, providerID, date string) ([]string, error)
	SetDailySlots(ctx context.Context, providerID, date string, slots []string) error
}

type availabilityService struct {
	providerRepo providersrepo.ProviderRepository
	dailyRepo    repository.DailyAvailabilityRepository
	cache        cache.Cache
	cfg          *config.Config
	now          func() time.Time
}

func NewAvailabilityService(
	providerRepo providersrepo.ProviderRepository,
	dailyRepo repository.DailyAvailabilityRepository,
	slotCache cache.Cache,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		providerRepo: providerRepo,
		dailyRepo:    dailyRepo,
		cache:        slotCache,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ListBookableSlots returns the open start times for a provider on a date.
// A daily override replaces the weekly template grid entirely; booked slots
// are removed in both cases. For today, start times already in the past are
// dropped; dates before today yield an empty list.
func (s *availabilityService) ListBookableSlots(ctx context.Context, providerID, date string) ([]string, error) {
	if providerID == "" {
		return nil, apperrors.InvalidInput("Provider ID cannot be empty")
	}

	weekday, err := model.WeekdayOfDate(date)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	today := s.now().Format("2006-01-02")
	if date < today {
		return []string{}, nil
	}

	// The cached list is the unfiltered bookable set; the time-of-day
	// filter depends on the current clock and is applied after the cache.
	cacheKey := cache.SlotListKey(providerID, date)
	var cached []string
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		return s.filterPast(cached, date, today), nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.cfg.Log.Warn("Slot cache read failed", "provider_id", providerID, "date", date, "error", err)
	}

	open, err := s.computeBookableSlots(ctx, providerID, date, weekday)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, cacheKey, open, s.cfg.SlotCacheTTL); err != nil {
		s.cfg.Log.Warn("Slot cache write failed", "provider_id", providerID, "date", date, "error", err)
	}

	return s.filterPast(open, date, today), nil
}

func (s *availabilityService) computeBookableSlots(ctx context.Context, providerID, date, weekday string) ([]string, error) {
	provider, err := s.providerRepo.FindByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, providerserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Provider", providerID)
		}
		if errors.Is(err, providerserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid provider ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve provider", err)
	}

	daily, err := s.dailyRepo.FindByProviderAndDate(ctx, providerID, date)
	if err != nil && !errors.Is(err, availabilityerrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to retrieve daily availability", err)
	}

	grid, err := ResolveGrid(provider, daily, weekday, s.cfg.SlotWidthMinutes)
	if err != nil {
		s.cfg.Log.Error("Failed to build slot grid", "provider_id", providerID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to build slot grid", err)
	}

	var booked []string
	if daily != nil {
		booked = daily.BookedSlots
	}

	return SubtractBooked(grid, booked), nil
}

// ResolveGrid picks the slot source for a date: a non-empty daily override
// wins outright, otherwise the weekly template's window is expanded into a
// grid. A closed or missing weekday produces no slots.
func ResolveGrid(provider *model.Provider, daily *model.DailyAvailability, weekday string, slotWidthMinutes int) ([]string, error) {
	if daily != nil && len(daily.AvailableSlots) > 0 {
		return daily.AvailableSlots, nil
	}

	hours, ok := provider.WeeklyAvailability[weekday]
	if !ok || !hours.IsOpen {
		return []string{}, nil
	}

	return GenerateGrid(hours.StartTime, hours.EndTime, slotWidthMinutes)
}

func (s *availabilityService) filterPast(slots []string, date, today string) []string {
	if date != today {
		return slots
	}

	cutoff := s.now().Format("15:04")
	upcoming := []string{}
	for _, slot := range slots {
		if slot > cutoff {
			upcoming = append(upcoming, slot)
		}
	}
	return upcoming
}

// SetDailySlots stores an explicit slot list for one date, replacing the
// weekly template for that date only. Times already booked for the date are
// folded into the stored list even when the override omits them: the claim
// was made under the old schedule and stays valid until cancelled.
func (s *availabilityService) SetDailySlots(ctx context.Context, providerID, date string, slots []string) error {
	if providerID == "" {
		return apperrors.InvalidInput("Provider ID cannot be empty")
	}

	if _, err := model.WeekdayOfDate(date); err != nil {
		return apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	normalized, err := normalizeSlots(slots)
	if err != nil {
		return apperrors.InvalidAvailability("Invalid slot list", map[string]any{"error": err.Error()})
	}

	if _, err := s.providerRepo.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, providerserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Provider", providerID)
		}
		if errors.Is(err, providerserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid provider ID format")
		}
		return apperrors.Internal("Failed to retrieve provider", err)
	}

	daily, err := s.dailyRepo.FindByProviderAndDate(ctx, providerID, date)
	if err != nil && !errors.Is(err, availabilityerrors.ErrNotFound) {
		return apperrors.Internal("Failed to retrieve daily availability", err)
	}
	if daily != nil {
		normalized = mergeSlots(normalized, daily.BookedSlots)
	}

	if err := s.dailyRepo.SetAvailableSlots(ctx, providerID, date, normalized); err != nil {
		s.cfg.Log.Error("Failed to set daily slots", "provider_id", providerID, "date", date, "error", err)
		return apperrors.Internal("Failed to set daily slots", err)
	}

	if err := s.cache.Delete(ctx, cache.SlotListKey(providerID, date)); err != nil {
		s.cfg.Log.Warn("Slot cache invalidation failed", "provider_id", providerID, "date", date, "error", err)
	}

	s.cfg.Log.Info("Daily slots updated successfully",
		"provider_id", providerID,
		"date", date,
		"slots", len(normalized),
	)
	return nil
}

func normalizeSlots(slots []string) ([]string, error) {
	seen := make(map[string]bool, len(slots))
	normalized := make([]string, 0, len(slots))
	for _, slot := range slots {
		if _, err := parseClock(slot); err != nil {
			return nil, err
		}
		if seen[slot] {
			continue
		}
		seen[slot] = true
		normalized = append(normalized, slot)
	}

	sort.Strings(normalized)
	return normalized, nil
}

// mergeSlots unions two sorted-or-unsorted slot lists into a sorted list
// without duplicates.
func mergeSlots(slots, extra []string) []string {
	seen := make(map[string]bool, len(slots))
	merged := append([]string(nil), slots...)
	for _, slot := range slots {
		seen[slot] = true
	}
	for _, slot := range extra {
		if seen[slot] {
			continue
		}
		seen[slot] = true
		merged = append(merged, slot)
	}

	sort.Strings(merged)
	return merged
}
