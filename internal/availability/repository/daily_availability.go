package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	availabilityerrors "trimbook/internal/availability/errors"
	"trimbook/pkg/config"
	mongotx "trimbook/pkg/db/mongo"
	"trimbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "DailyAvailability"
)

type mongoDailyAvailabilityRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

// DailyAvailabilityRepository is the per-(provider, date) booking ledger.
// Reserve and Release are the only writers of booked_slots; both are safe
// under concurrent callers because the slot membership check and the
// mutation happen in a single filtered update.
type DailyAvailabilityRepository interface {
	FindByProviderAndDate(ctx context.Context, providerID, date string) (*model.DailyAvailability, error)
	SetAvailableSlots(ctx context.Context, providerID, date string, slots []string) error
	Reserve(ctx context.Context, providerID, date, slot string) error
	Release(ctx context.Context, providerID, date, slot string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoDailyAvailabilityRepository(cfg *config.Config) DailyAvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDailyAvailabilityRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoDailyAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDailyAvailabilityRepository) FindByProviderAndDate(ctx context.Context, providerID, date string) (*model.DailyAvailability, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"_id": model.DailyAvailabilityID(providerID, date)}

	var daily model.DailyAvailability
	err := r.collection.FindOne(ctx, filter).Decode(&daily)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find daily availability: %w", err)
	}

	return &daily, nil
}

func (r *mongoDailyAvailabilityRepository) SetAvailableSlots(ctx context.Context, providerID, date string, slots []string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": model.DailyAvailabilityID(providerID, date)}
	update := bson.M{
		"$set": bson.M{
			"provider_id":     providerID,
			"date":            date,
			"available_slots": slots,
			"last_updated":    time.Now().UTC().Truncate(time.Millisecond),
		},
		"$setOnInsert": bson.M{
			"booked_slots": []string{},
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set available slots: %w", err)
	}

	return nil
}

// Reserve claims a start time for the provider and date. The filter excludes
// documents already holding the slot, so a concurrent duplicate claim either
// matches nothing (document exists, slot present) or races the upsert into a
// duplicate _id. Both outcomes surface as ErrSlotTaken.
func (r *mongoDailyAvailabilityRepository) Reserve(ctx context.Context, providerID, date, slot string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":          model.DailyAvailabilityID(providerID, date),
		"booked_slots": bson.M{"$ne": slot},
	}
	update := bson.M{
		"$addToSet": bson.M{"booked_slots": slot},
		"$set":      bson.M{"last_updated": time.Now().UTC().Truncate(time.Millisecond)},
		"$setOnInsert": bson.M{
			"provider_id": providerID,
			"date":        date,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return availabilityerrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to reserve slot: %w", err)
	}

	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return availabilityerrors.ErrSlotTaken
	}

	return nil
}

// Release removes a claimed start time. Releasing a slot that is not booked
// is a no-op, so retries and already-released bookings are harmless.
func (r *mongoDailyAvailabilityRepository) Release(ctx context.Context, providerID, date, slot string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": model.DailyAvailabilityID(providerID, date)}
	update := bson.M{
		"$pull": bson.M{"booked_slots": slot},
		"$set":  bson.M{"last_updated": time.Now().UTC().Truncate(time.Millisecond)},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	return nil
}

func (r *mongoDailyAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
