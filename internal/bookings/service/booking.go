package service

import (
	"context"
	"errors"
	"sync"
	availabilityerrors "trimbook/internal/availability/errors"
	availabilityrepo "trimbook/internal/availability/repository"
	availabilityservice "trimbook/internal/availability/service"
	bookingserrors "trimbook/internal/bookings/errors"
	"trimbook/internal/bookings/events"
	"trimbook/internal/bookings/repository"
	"trimbook/internal/bookings/validator"
	providerserrors "trimbook/internal/providers/errors"
	providersrepo "trimbook/internal/providers/repository"
	"trimbook/pkg/cache"
	"trimbook/pkg/config"
	apperrors "trimbook/pkg/errors"
	"trimbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	Accept(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByClient(ctx context.Context, clientID, status string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListByProviderAndDate(ctx context.Context, providerID, date, status string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	ledger       availabilityrepo.DailyAvailabilityRepository
	providerRepo providersrepo.ProviderRepository
	validator    *validator.BookingValidator
	publisher    events.Publisher
	cache        cache.Cache
	cfg          *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	ledger availabilityrepo.DailyAvailabilityRepository,
	providerRepo providersrepo.ProviderRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	slotCache cache.Cache,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		ledger:       ledger,
		providerRepo: providerRepo,
		validator:    validator,
		publisher:    publisher,
		cache:        slotCache,
		cfg:          cfg,
	}
}

// Create reserves the requested slot and inserts the booking in one
// transaction. The ledger write is the serialization point: of two
// concurrent requests for the same slot exactly one commits, the other
// gets a slot conflict.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	provider, err := s.loadProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}

	resolved, unknown := provider.ResolveServices(req.ServiceIDs)
	if len(unknown) > 0 {
		return nil, apperrors.UnknownService(unknown)
	}

	if err := s.verifySlotOffered(ctx, provider, req.Date, req.Time); err != nil {
		return nil, err
	}

	totalPrice := 0.0
	totalDuration := 0
	for _, svc := range resolved {
		totalPrice += svc.Price
		totalDuration += svc.DurationMinutes
	}

	booking := &model.Booking{
		ProviderID:           req.ProviderID,
		ClientID:             req.ClientID,
		Date:                 req.Date,
		Time:                 req.Time,
		ServiceIDs:           req.ServiceIDs,
		TotalPrice:           totalPrice,
		TotalDurationMinutes: totalDuration,
		Status:               model.StatusPending,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.ledger.Reserve(sessCtx, booking.ProviderID, booking.Date, booking.Time); err != nil {
			if errors.Is(err, availabilityerrors.ErrSlotTaken) {
				return apperrors.SlotConflict(booking.ProviderID, booking.Date, booking.Time)
			}
			return apperrors.Internal("Failed to reserve slot", err)
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"provider_id", booking.ProviderID,
			"date", booking.Date,
			"time", booking.Time,
			"error", err,
		)
		return nil, err
	}

	s.afterCommit(ctx, events.TypeBookingCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"provider_id", booking.ProviderID,
		"client_id", booking.ClientID,
		"date", booking.Date,
		"time", booking.Time,
	)
	return booking, nil
}

func (s *bookingService) Accept(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.TransitionAllowed(booking.Status, model.StatusConfirmed) {
		return nil, apperrors.InvalidTransition(booking.Status, model.StatusConfirmed)
	}

	// Confirming never touches the ledger: the slot was claimed at
	// creation time and stays claimed. The write only matches a booking
	// that is still pending, so a cancel that lands after the read above
	// cannot be overwritten.
	if err := s.repo.UpdateStatus(ctx, id, []string{model.StatusPending}, model.StatusConfirmed); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusConflict) {
			return nil, s.concurrentTransition(ctx, id, model.StatusConfirmed)
		}
		s.cfg.Log.Error("Failed to confirm booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to confirm booking", err)
	}
	booking.Status = model.StatusConfirmed

	if err := s.publisher.PublishBookingEvent(ctx, events.TypeBookingConfirmed, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"id", booking.ID,
			"event_type", events.TypeBookingConfirmed,
			"error", err,
		)
	}

	s.cfg.Log.Info("Booking confirmed successfully", "id", id)
	return booking, nil
}

// Cancel flips the booking to cancelled and returns its slot to the pool in
// a single transaction. The record itself is never deleted.
func (s *bookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !model.TransitionAllowed(booking.Status, model.StatusCancelled) {
		return nil, apperrors.InvalidTransition(booking.Status, model.StatusCancelled)
	}

	// The status write only matches a booking still in an active state,
	// and every active booking holds its slot, so a matched cancel always
	// owes exactly one release. A concurrent cancel that lost the race
	// matches nothing and reports the transition conflict instead.
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, id, model.ActiveStatuses, model.StatusCancelled); err != nil {
			if errors.Is(err, bookingserrors.ErrStatusConflict) {
				return s.concurrentTransition(sessCtx, id, model.StatusCancelled)
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		if err := s.ledger.Release(sessCtx, booking.ProviderID, booking.Date, booking.Time); err != nil {
			return apperrors.Internal("Failed to release slot", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel booking", "id", id, "error", err)
		return nil, err
	}
	booking.Status = model.StatusCancelled

	s.afterCommit(ctx, events.TypeBookingCancelled, booking)

	s.cfg.Log.Info("Booking cancelled successfully", "id", id)
	return booking, nil
}

// concurrentTransition re-reads a booking after a conditional status write
// matched nothing, so the rejection names the status that actually blocked it.
func (s *bookingService) concurrentTransition(ctx context.Context, id, target string) error {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.InvalidTransition(booking.Status, target)
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) ListByClient(ctx context.Context, clientID, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if clientID == "" {
		return nil, 0, apperrors.InvalidInput("Client ID cannot be empty")
	}
	if err := validateStatusFilter(status); err != nil {
		return nil, 0, err
	}

	return s.listConcurrently(ctx,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByClient(ctx, clientID, status)
		},
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByClient(ctx, clientID, status, limit, offset)
		},
	)
}

func (s *bookingService) ListByProviderAndDate(ctx context.Context, providerID, date, status string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if providerID == "" {
		return nil, 0, apperrors.InvalidInput("Provider ID cannot be empty")
	}
	if _, err := model.WeekdayOfDate(date); err != nil {
		return nil, 0, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}
	if err := validateStatusFilter(status); err != nil {
		return nil, 0, err
	}

	return s.listConcurrently(ctx,
		func(ctx context.Context) (int64, error) {
			return s.repo.CountByProviderAndDate(ctx, providerID, date, status)
		},
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.repo.FindByProviderAndDate(ctx, providerID, date, status, limit, offset)
		},
	)
}

// validateStatusFilter accepts the lifecycle states plus empty for "all".
func validateStatusFilter(status string) error {
	switch status {
	case "", model.StatusPending, model.StatusConfirmed, model.StatusCancelled:
		return nil
	default:
		return apperrors.InvalidInput("Invalid status filter: " + status)
	}
}

// --- Helpers ---

func (s *bookingService) listConcurrently(
	ctx context.Context,
	countFn func(ctx context.Context) (int64, error),
	findFn func(ctx context.Context) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = countFn(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = findFn(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) loadProvider(ctx context.Context, providerID string) (*model.Provider, error) {
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
	return provider, nil
}

// verifySlotOffered rejects times outside the provider's grid for that date.
// The check is advisory: the ledger reserve inside the transaction is what
// actually prevents double allocation.
func (s *bookingService) verifySlotOffered(ctx context.Context, provider *model.Provider, date, slot string) error {
	weekday, err := model.WeekdayOfDate(date)
	if err != nil {
		return apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	daily, err := s.ledger.FindByProviderAndDate(ctx, provider.ID, date)
	if err != nil && !errors.Is(err, availabilityerrors.ErrNotFound) {
		return apperrors.Internal("Failed to retrieve daily availability", err)
	}

	grid, err := availabilityservice.ResolveGrid(provider, daily, weekday, s.cfg.SlotWidthMinutes)
	if err != nil {
		return apperrors.Internal("Failed to build slot grid", err)
	}

	for _, candidate := range grid {
		if candidate == slot {
			return nil
		}
	}

	return apperrors.Validation("Requested time is not an offered slot", map[string]any{
		"provider_id": provider.ID,
		"date":        date,
		"slot":        slot,
	})
}

// afterCommit handles the best-effort side effects of a committed write:
// the lifecycle event and the slot cache invalidation. Failures are logged
// and never bubble up, the booking state is already durable.
func (s *bookingService) afterCommit(ctx context.Context, eventType string, booking *model.Booking) {
	if err := s.publisher.PublishBookingEvent(ctx, eventType, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"id", booking.ID,
			"event_type", eventType,
			"error", err,
		)
	}

	if err := s.cache.Delete(ctx, cache.SlotListKey(booking.ProviderID, booking.Date)); err != nil {
		s.cfg.Log.Warn("Slot cache invalidation failed",
			"provider_id", booking.ProviderID,
			"date", booking.Date,
			"error", err,
		)
	}
}
