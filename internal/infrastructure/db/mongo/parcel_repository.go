package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wareflow/parcel-engine/internal/core/domain"
	"github.com/wareflow/parcel-engine/internal/core/ports"
)

const collectionParcels = "parcels"

type ParcelRepository struct {
	col *mongo.Collection
}

func NewParcelRepository(db *mongo.Database) *ParcelRepository {
	return &ParcelRepository{col: db.Collection(collectionParcels)}
}

// Create inserts a new parcel document.
func (r *ParcelRepository) Create(ctx context.Context, p *domain.Parcel) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *ParcelRepository) FindByID(ctx context.Context, id string) (*domain.Parcel, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// ListByIdempotencyKey returns the full batch created under key, in
// sequence order.
func (r *ParcelRepository) ListByIdempotencyKey(ctx context.Context, key string) ([]*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "parcel_sequence", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"idempotency_key": key}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var parcels []*domain.Parcel
	if err := cur.All(ctx, &parcels); err != nil {
		return nil, err
	}
	return parcels, nil
}

// FindByBarcode resolves an exact piece barcode to its parcel. Barcodes are
// unique across the system, so at most one document matches.
func (r *ParcelRepository) FindByBarcode(ctx context.Context, code string) (*domain.Parcel, error) {
	return r.findOne(ctx, bson.M{"pieces.barcode": code})
}

// FindByParcelCode resolves a TRIP-SEQ prefix to the parcel whose piece
// barcodes start with it.
func (r *ParcelRepository) FindByParcelCode(ctx context.Context, prefix string) (*domain.Parcel, error) {
	return r.findOne(ctx, bson.M{
		"pieces.barcode": primitive.Regex{Pattern: "^" + escapeRegex(prefix) + "-"},
	})
}

func (r *ParcelRepository) findOne(ctx context.Context, filter bson.M) (*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p domain.Parcel
	err := r.col.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrParcelNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateStatus applies upd iff the stored revision still equals
// expectedRevision. The revision filter is the optimistic lock: a matched
// count of zero with an existing document means a concurrent writer won.
func (r *ParcelRepository) UpdateStatus(ctx context.Context, id string, expectedRevision int64, upd ports.StatusUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	set := bson.M{"status": upd.Status}
	unset := bson.M{}
	if upd.MarkPiecesLoadedAt != nil {
		set["pieces.$[].loaded_at"] = *upd.MarkPiecesLoadedAt
	}
	if upd.ClearPiecesLoaded {
		unset["pieces.$[].loaded_at"] = ""
	}
	if upd.CollectedAt != nil {
		set["collected_at"] = *upd.CollectedAt
		set["confirmation_note"] = upd.ConfirmationNote
	}
	if upd.AdminNotified != nil {
		set["admin_notified"] = *upd.AdminNotified
	}

	update := bson.M{
		"$set":  set,
		"$inc":  bson.M{"revision": 1},
		"$push": bson.M{"status_history": upd.Entry},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "revision": expectedRevision}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a vanished parcel.
		if _, ferr := r.findOne(ctx, bson.M{"_id": id}); ferr != nil {
			return ferr
		}
		return domain.ErrConflict
	}
	return nil
}

// AssignTrip sets or clears trip_id on every given parcel unconditionally.
func (r *ParcelRepository) AssignTrip(ctx context.Context, ids []string, tripID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$inc": bson.M{"revision": 1}}
	if tripID == "" {
		update["$unset"] = bson.M{"trip_id": ""}
	} else {
		update["$set"] = bson.M{"trip_id": tripID}
	}

	res, err := r.col.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// AttachInvoice records the billing reference and cached payment status.
func (r *ParcelRepository) AttachInvoice(ctx context.Context, id, invoiceID string, ps domain.PaymentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"invoice_id": invoiceID, "invoice_payment_status": ps},
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrParcelNotFound
	}
	return nil
}

// Delete hard-deletes the given parcels. Pieces are embedded, so they go
// with the document.
func (r *ParcelRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// List returns a page of parcels matching filter and the total count.
func (r *ParcelRepository) List(ctx context.Context, filter ports.ListParcelsFilter) ([]*domain.Parcel, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := buildFilter(filter)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var parcels []*domain.Parcel
	if err := cur.All(ctx, &parcels); err != nil {
		return nil, 0, err
	}
	return parcels, total, nil
}

// ResolveIDs returns every parcel id matching filter, unpaged.
func (r *ParcelRepository) ResolveIDs(ctx context.Context, filter ports.ListParcelsFilter) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := r.col.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// ListByTripAndStatus returns all parcels on a trip in the given status.
func (r *ParcelRepository) ListByTripAndStatus(ctx context.Context, tripID string, status domain.ParcelStatus) ([]*domain.Parcel, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"trip_id": tripID, "status": status})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var parcels []*domain.Parcel
	if err := cur.All(ctx, &parcels); err != nil {
		return nil, err
	}
	return parcels, nil
}

// CountByStatus returns parcel counts keyed by custody status.
func (r *ParcelRepository) CountByStatus(ctx context.Context) (map[domain.ParcelStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status domain.ParcelStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[domain.ParcelStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// EnsureIndexes creates necessary indexes on the parcels collection.
func (r *ParcelRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "pieces.barcode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
		{Keys: bson.D{{Key: "trip_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func buildFilter(f ports.ListParcelsFilter) bson.M {
	query := bson.M{}
	if f.ClientID != "" {
		query["client_id"] = f.ClientID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.TripID != "" {
		query["trip_id"] = f.TripID
	}
	if f.Destination != "" {
		query["destination"] = f.Destination
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: escapeRegex(f.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"description": pattern},
			bson.M{"pieces.barcode": pattern},
		}
	}
	created := bson.M{}
	if !f.DateFrom.IsZero() {
		created["$gte"] = f.DateFrom
	}
	if !f.DateTo.IsZero() {
		created["$lte"] = f.DateTo
	}
	if len(created) > 0 {
		query["created_at"] = created
	}
	return query
}

var regexSpecials = `\.+*?()|[]{}^$`

func escapeRegex(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(regexSpecials); j++ {
			if s[i] == regexSpecials[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}
