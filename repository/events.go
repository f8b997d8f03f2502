package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	models "github.com/phillip/lets-hang-go/models"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
	ErrDuplicate       = errors.New("duplicate key")
)

type EventFilter struct {
	Search   string
	Category string
	Status   string
	HostID   string
}

type EventRepository struct {
	col *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	r := &EventRepository{col: db.Collection("events")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.EnsureIndexes(ctx); err != nil {
		zap.L().Warn("[EventRepository] EnsureIndexes", zap.Error(err))
	}
	return r
}

func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			},
			Options: options.Index().SetName("events_text"),
		},
		{Keys: bson.D{{Key: "host_id", Value: 1}}, Options: options.Index().SetName("events_host")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("events_status")},
		{Keys: bson.D{{Key: "category", Value: 1}}, Options: options.Index().SetName("events_category")},
		{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetName("events_date")},
		{Keys: bson.D{{Key: "privacy_type", Value: 1}}, Options: options.Index().SetName("events_privacy")},
		{Keys: bson.D{{Key: "invite_code", Value: 1}}, Options: options.Index().SetName("events_invite_code")},
		{Keys: bson.D{{Key: "attendees.id", Value: 1}}, Options: options.Index().SetName("events_attendee_ids")},
		{Keys: bson.D{{Key: "join_requests.id", Value: 1}}, Options: options.Index().SetName("events_request_ids")},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	e.Version = 1
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var e models.Event
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]models.Event, error) {
	filter := bson.M{}
	if f.Search != "" {
		filter["$text"] = bson.M{"$search": f.Search}
	}
	if f.Category != "" && f.Category != "all" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.HostID != "" {
		filter["host_id"] = f.HostID
	}
	return r.find(ctx, filter, 1)
}

func (r *EventRepository) ListHosted(ctx context.Context, hostID string) ([]models.Event, error) {
	return r.find(ctx, bson.M{"host_id": hostID}, -1)
}

func (r *EventRepository) ListAttending(ctx context.Context, userID string) ([]models.Event, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"attendees.id": userID},
		bson.M{"join_requests.id": userID},
	}}, 1)
}

func (r *EventRepository) find(ctx context.Context, filter bson.M, dateOrder int) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: dateOrder}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cur.Close(ctx)

	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// Update replaces the stored document only if nobody else wrote it since
// it was read. On success e.Version is advanced.
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	expected := e.Version
	next := *e
	next.Version = expected + 1
	next.UpdatedAt = time.Now()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": e.ID, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("replace event: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": e.ID})
		if err != nil {
			return fmt.Errorf("post-check event: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	e.Version = next.Version
	e.UpdatedAt = next.UpdatedAt
	return nil
}

// SetPayoutStatus is used by the payout sweep; it bumps the version so
// in-flight read-modify-write cycles retry against the new state.
func (r *EventRepository) SetPayoutStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{"payout_status": status, "updated_at": time.Now()}
	if completedAt != nil {
		set["payout_completed_at"] = *completedAt
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if err != nil {
		return fmt.Errorf("set payout status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
