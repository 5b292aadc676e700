package service

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	availabilityerrors "trimbook/internal/availability/errors"
	providerserrors "trimbook/internal/providers/errors"
	"trimbook/pkg/cache"
	"trimbook/pkg/config"
	mongotx "trimbook/pkg/db/mongo"
	apperrors "trimbook/pkg/errors"
	"trimbook/pkg/logger"
	"trimbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Fakes for testing

type fakeProviderRepo struct {
	providers map[string]*model.Provider
}

func (f *fakeProviderRepo) Create(ctx context.Context, provider *model.Provider) error {
	f.providers[provider.ID] = provider
	return nil
}

func (f *fakeProviderRepo) FindByID(ctx context.Context, id string) (*model.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, providerserrors.ErrNotFound
	}
	return p, nil
}

func (f *fakeProviderRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Provider, error) {
	return nil, nil
}

func (f *fakeProviderRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.providers)), nil
}

func (f *fakeProviderRepo) UpdateWeeklyAvailability(ctx context.Context, id string, weekly map[string]model.DayHours) error {
	p, ok := f.providers[id]
	if !ok {
		return providerserrors.ErrNotFound
	}
	p.WeeklyAvailability = weekly
	return nil
}

func (f *fakeProviderRepo) UpdateServices(ctx context.Context, id string, services map[string]model.ServiceDefinition) error {
	p, ok := f.providers[id]
	if !ok {
		return providerserrors.ErrNotFound
	}
	p.Services = services
	return nil
}

type fakeDailyRepo struct {
	mu      sync.Mutex
	records map[string]*model.DailyAvailability
}

func newFakeDailyRepo() *fakeDailyRepo {
	return &fakeDailyRepo{records: make(map[string]*model.DailyAvailability)}
}

func (f *fakeDailyRepo) FindByProviderAndDate(ctx context.Context, providerID, date string) (*model.DailyAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[model.DailyAvailabilityID(providerID, date)]
	if !ok {
		return nil, availabilityerrors.ErrNotFound
	}
	clone := *rec
	clone.AvailableSlots = append([]string(nil), rec.AvailableSlots...)
	clone.BookedSlots = append([]string(nil), rec.BookedSlots...)
	return &clone, nil
}

func (f *fakeDailyRepo) SetAvailableSlots(ctx context.Context, providerID, date string, slots []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := model.DailyAvailabilityID(providerID, date)
	rec, ok := f.records[id]
	if !ok {
		rec = &model.DailyAvailability{ID: id, ProviderID: providerID, Date: date, BookedSlots: []string{}}
		f.records[id] = rec
	}
	rec.AvailableSlots = append([]string(nil), slots...)
	return nil
}

func (f *fakeDailyRepo) Reserve(ctx context.Context, providerID, date, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := model.DailyAvailabilityID(providerID, date)
	rec, ok := f.records[id]
	if !ok {
		rec = &model.DailyAvailability{ID: id, ProviderID: providerID, Date: date}
		f.records[id] = rec
	}
	for _, booked := range rec.BookedSlots {
		if booked == slot {
			return availabilityerrors.ErrSlotTaken
		}
	}
	rec.BookedSlots = append(rec.BookedSlots, slot)
	return nil
}

func (f *fakeDailyRepo) Release(ctx context.Context, providerID, date, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[model.DailyAvailabilityID(providerID, date)]
	if !ok {
		return nil
	}
	kept := rec.BookedSlots[:0]
	for _, booked := range rec.BookedSlots {
		if booked != slot {
			kept = append(kept, booked)
		}
	}
	rec.BookedSlots = kept
	return nil
}

func (f *fakeDailyRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(ctx context.Context, key string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, out)
}

func (f *fakeCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SlotWidthMinutes: 15,
		SlotCacheTTL:     time.Minute,
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
	}
}

func testProvider() *model.Provider {
	return &model.Provider{
		ID:   "prov1",
		Name: "John's Salon",
		WeeklyAvailability: map[string]model.DayHours{
			"monday":  {IsOpen: true, StartTime: "09:00", EndTime: "10:00"},
			"tuesday": {IsOpen: true, StartTime: "09:00", EndTime: "12:00"},
			"sunday":  {IsOpen: false},
		},
	}
}

func newTestService(provider *model.Provider) (*availabilityService, *fakeDailyRepo, *fakeCache) {
	providerRepo := &fakeProviderRepo{providers: map[string]*model.Provider{}}
	if provider != nil {
		providerRepo.providers[provider.ID] = provider
	}
	dailyRepo := newFakeDailyRepo()
	slotCache := newFakeCache()

	svc := NewAvailabilityService(providerRepo, dailyRepo, slotCache, testConfig()).(*availabilityService)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc, dailyRepo, slotCache
}

// 2026-09-07 is a Monday; the fixed test clock sits on Tuesday 2026-09-01.
const mondayDate = "2026-09-07"

func TestListBookableSlots_TemplateGrid(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	slots, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:15", "09:30", "09:45"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
}

func TestListBookableSlots_BookedSlotsRemoved(t *testing.T) {
	svc, dailyRepo, _ := newTestService(testProvider())

	if err := dailyRepo.Reserve(context.Background(), "prov1", mondayDate, "09:15"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	slots, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:30", "09:45"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
}

func TestListBookableSlots_OverrideReplacesTemplate(t *testing.T) {
	svc, dailyRepo, _ := newTestService(testProvider())

	if err := dailyRepo.SetAvailableSlots(context.Background(), "prov1", mondayDate, []string{"14:00", "15:00"}); err != nil {
		t.Fatalf("set available slots failed: %v", err)
	}
	if err := dailyRepo.Reserve(context.Background(), "prov1", mondayDate, "15:00"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	slots, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The template's 09:xx grid must not leak through the override.
	want := []string{"14:00"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
}

func TestListBookableSlots_ClosedDay(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	// 2026-09-06 is a Sunday, marked closed in the template.
	slots, err := svc.ListBookableSlots(context.Background(), "prov1", "2026-09-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 0 {
		t.Errorf("expected no slots on closed day, got %v", slots)
	}
}

func TestListBookableSlots_MissingWeekdayEntry(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	// 2026-09-09 is a Wednesday, absent from the template.
	slots, err := svc.ListBookableSlots(context.Background(), "prov1", "2026-09-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 0 {
		t.Errorf("expected no slots for missing weekday, got %v", slots)
	}
}

func TestListBookableSlots_PastDate(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	slots, err := svc.ListBookableSlots(context.Background(), "prov1", "2026-08-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 0 {
		t.Errorf("expected no slots for past date, got %v", slots)
	}
}

func TestListBookableSlots_TodayFiltersElapsedTimes(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	// Tuesday template runs 09:00-12:00; the clock reads 10:00.
	slots, err := svc.ListBookableSlots(context.Background(), "prov1", "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"10:15", "10:30", "10:45", "11:00", "11:15", "11:30", "11:45"}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
}

func TestListBookableSlots_ProviderNotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.ListBookableSlots(context.Background(), "missing", mondayDate)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestListBookableSlots_InvalidDate(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	_, err := svc.ListBookableSlots(context.Background(), "prov1", "07-09-2026")
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT error, got %v", err)
	}
}

func TestListBookableSlots_ServesFromCache(t *testing.T) {
	provider := testProvider()
	svc, _, _ := newTestService(provider)

	first, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A template change is not visible until the cache entry expires or is
	// invalidated.
	provider.WeeklyAvailability["monday"] = model.DayHours{IsOpen: true, StartTime: "13:00", EndTime: "14:00"}

	second, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected cached slots %v, got %v", first, second)
	}
}

func TestSetDailySlots_NormalizesAndInvalidatesCache(t *testing.T) {
	svc, dailyRepo, slotCache := newTestService(testProvider())

	// Prime the cache with the template grid.
	if _, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.SetDailySlots(context.Background(), "prov1", mondayDate, []string{"15:00", "14:00", "15:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := dailyRepo.FindByProviderAndDate(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"14:00", "15:00"}
	if !reflect.DeepEqual(rec.AvailableSlots, want) {
		t.Errorf("stored slots = %v, want %v", rec.AvailableSlots, want)
	}

	slots, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(slots, want) {
		t.Errorf("slots after override = %v, want %v", slots, want)
	}

	var cached []string
	if err := slotCache.GetJSON(context.Background(), cache.SlotListKey("prov1", mondayDate), &cached); err != nil {
		t.Fatalf("expected repopulated cache entry, got %v", err)
	}
}

func TestSetDailySlots_KeepsBookedTimes(t *testing.T) {
	svc, dailyRepo, _ := newTestService(testProvider())

	if err := dailyRepo.Reserve(context.Background(), "prov1", mondayDate, "09:15"); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// The override omits the booked 09:15; the stored list must keep it so
	// booked times always remain a subset of the day's slot set.
	if err := svc.SetDailySlots(context.Background(), "prov1", mondayDate, []string{"14:00"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := dailyRepo.FindByProviderAndDate(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"09:15", "14:00"}; !reflect.DeepEqual(rec.AvailableSlots, want) {
		t.Errorf("stored slots = %v, want %v", rec.AvailableSlots, want)
	}

	// The booked time is stored but not bookable.
	slots, err := svc.ListBookableSlots(context.Background(), "prov1", mondayDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"14:00"}; !reflect.DeepEqual(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
}

func TestSetDailySlots_RejectsMalformedTimes(t *testing.T) {
	svc, _, _ := newTestService(testProvider())

	err := svc.SetDailySlots(context.Background(), "prov1", mondayDate, []string{"9:00"})
	if !apperrors.HasCode(err, apperrors.CodeInvalidAvailability) {
		t.Errorf("expected INVALID_AVAILABILITY error, got %v", err)
	}
}

func TestSetDailySlots_UnknownProvider(t *testing.T) {
	svc, _, _ := newTestService(nil)

	err := svc.SetDailySlots(context.Background(), "missing", mondayDate, []string{"14:00"})
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}
