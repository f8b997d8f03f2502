package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	models "github.com/phillip/lets-hang-go/models"
)

type PayoutRepository struct {
	col *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	r := &PayoutRepository{col: db.Collection("payouts")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.EnsureIndexes(ctx); err != nil {
		zap.L().Warn("[PayoutRepository] EnsureIndexes", zap.Error(err))
	}
	return r
}

func (r *PayoutRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduled_for", Value: 1}},
			Options: options.Index().SetName("payouts_status_due"),
		},
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetName("payouts_event_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("payouts_status_updated"),
		},
		{Keys: bson.D{{Key: "host_id", Value: 1}}, Options: options.Index().SetName("payouts_host")},
	})
	if err != nil {
		return fmt.Errorf("payouts indexes: %w", err)
	}
	return nil
}

func (r *PayoutRepository) Create(ctx context.Context, p *models.Payout) error {
	if _, err := r.col.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

func (r *PayoutRepository) Get(ctx context.Context, id string) (*models.Payout, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// FindByEvent returns the event's payout. There is at most one per event.
func (r *PayoutRepository) FindByEvent(ctx context.Context, eventID string) (*models.Payout, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.findOne(ctx, bson.M{"event_id": eventID}, opts)
}

func (r *PayoutRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Payout, error) {
	var p models.Payout
	var res *mongo.SingleResult
	if opts != nil {
		res = r.col.FindOne(ctx, filter, opts)
	} else {
		res = r.col.FindOne(ctx, filter)
	}
	if err := res.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find payout: %w", err)
	}
	return &p, nil
}

func (r *PayoutRepository) ListByHost(ctx context.Context, hostID string) ([]models.Payout, error) {
	return r.find(ctx, bson.M{"host_id": hostID}, bson.D{{Key: "created_at", Value: -1}})
}

// ListDue returns scheduled payouts whose time has come.
func (r *PayoutRepository) ListDue(ctx context.Context, now time.Time) ([]models.Payout, error) {
	return r.find(ctx, bson.M{
		"status":        models.PayoutScheduled,
		"scheduled_for": bson.M{"$lte": now},
	}, bson.D{{Key: "scheduled_for", Value: 1}})
}

// ListStale returns payouts left in processing since before cutoff.
func (r *PayoutRepository) ListStale(ctx context.Context, cutoff time.Time) ([]models.Payout, error) {
	return r.find(ctx, bson.M{
		"status":     models.PayoutProcessing,
		"updated_at": bson.M{"$lte": cutoff},
	}, bson.D{{Key: "updated_at", Value: 1}})
}

func (r *PayoutRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Payout, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find payouts: %w", err)
	}
	defer cur.Close(ctx)

	payouts := []models.Payout{}
	if err := cur.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("decode payouts: %w", err)
	}
	return payouts, nil
}

// Claim moves a payout to processing if it is still in one of the given
// states. It reports false when another worker got there first.
func (r *PayoutRepository) Claim(ctx context.Context, id string, from []string, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": models.PayoutProcessing, "updated_at": now}, "$unset": bson.M{"error": ""}},
	)
	if err != nil {
		return false, fmt.Errorf("claim payout: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// Reclaim takes over a processing payout whose claim is older than cutoff,
// renewing the lease. Only one caller can win for a given lease.
func (r *PayoutRepository) Reclaim(ctx context.Context, id string, cutoff, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.PayoutProcessing, "updated_at": bson.M{"$lte": cutoff}},
		bson.M{"$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("reclaim payout: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *PayoutRepository) Complete(ctx context.Context, id, transactionID string, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"status":         models.PayoutCompleted,
		"transaction_id": transactionID,
		"processed_at":   at,
		"updated_at":     at,
	})
}

func (r *PayoutRepository) Fail(ctx context.Context, id, reason string, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"status":     models.PayoutFailed,
		"error":      reason,
		"updated_at": at,
	})
}

// Expedite pulls a scheduled payout for the event forward to at.
func (r *PayoutRepository) Expedite(ctx context.Context, eventID string, at time.Time) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"event_id": eventID, "status": models.PayoutScheduled, "scheduled_for": bson.M{"$gt": at}},
		bson.M{"$set": bson.M{"scheduled_for": at, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("expedite payout: %w", err)
	}
	return nil
}

func (r *PayoutRepository) set(ctx context.Context, id string, fields bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update payout: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PayoutRepository) Summary(ctx context.Context) (models.PayoutSummary, error) {
	var s models.PayoutSummary
	cur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "amount", Value: bson.D{{Key: "$sum", Value: "$host_earnings"}}},
		}}},
	})
	if err != nil {
		return s, fmt.Errorf("summarize payouts: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
		Amount int64  `bson:"amount"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return s, fmt.Errorf("decode payout summary: %w", err)
	}
	for _, row := range rows {
		switch row.Status {
		case models.PayoutScheduled:
			s.Scheduled = row.Count
			s.ScheduledTotal = row.Amount
		case models.PayoutCompleted:
			s.Completed = row.Count
		case models.PayoutFailed:
			s.Failed = row.Count
		}
	}
	return s, nil
}
