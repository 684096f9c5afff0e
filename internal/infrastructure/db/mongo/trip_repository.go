package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const collectionTrips = "trips"

type TripRepository struct {
	col *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{col: db.Collection(collectionTrips)}
}

func (r *TripRepository) FindByID(ctx context.Context, id string) (*domain.Trip, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t domain.Trip
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTripNotFound
		}
		return nil, err
	}
	return &t, nil
}

// UpdateStatus applies upd under the trip's revision check, mirroring the
// parcel repository's optimistic lock.
func (r *TripRepository) UpdateStatus(ctx context.Context, id string, expectedRevision int64, upd ports.TripStatusUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{"status": upd.Status}
	if upd.DepartedAt != nil {
		set["departed_at"] = *upd.DepartedAt
	}
	if upd.ArrivedAt != nil {
		set["arrived_at"] = *upd.ArrivedAt
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "revision": expectedRevision},
		bson.M{"$set": set, "$inc": bson.M{"revision": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if err := r.col.FindOne(ctx, bson.M{"_id": id}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrTripNotFound
		}
		return domain.ErrConflict
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the trips collection.
func (r *TripRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trip_number", Value: 1}},
	})
	return err
}
