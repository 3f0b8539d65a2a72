package repository

import (
	"atlas-service/internal/apperror"
	"atlas-service/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrConflict reports that a versioned update lost the race to a concurrent
// writer, or that an insert hit the unique (user_id, node_id) index. The
// mastery engine retries a bounded number of times before giving up.
var ErrConflict = errors.New("mastery record modified concurrently")

type MasteryRepository struct {
	collection *mongo.Collection
}

func NewMasteryRepository(database *mongo.Database, collection string) *MasteryRepository {
	return &MasteryRepository{
		collection: database.Collection(collection),
	}
}

func (r *MasteryRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetNodeMasteryIndexes())
	if err != nil {
		return apperror.Storage(err, "failed to create mastery indexes")
	}
	return nil
}

// GetByUserAndNode returns nil without error when the user has never
// submitted for this node.
func (r *MasteryRepository) GetByUserAndNode(ctx context.Context, userID, nodeID string) (*models.NodeMasteryRecord, error) {
	filter := bson.M{
		"user_id": userID,
		"node_id": nodeID,
	}

	var record models.NodeMasteryRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, apperror.Storage(err, "failed to get mastery record %s/%s", userID, nodeID)
	}

	return &record, nil
}

// Insert creates the first mastery record for (user, node). A duplicate-key
// failure means a concurrent first submission won; callers reload and retry.
func (r *MasteryRepository) Insert(ctx context.Context, record *models.NodeMasteryRecord) error {
	if record.ID.IsZero() {
		record.ID = bson.NewObjectID()
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", ErrConflict, record.UserID, record.NodeID)
		}
		return apperror.Storage(err, "failed to insert mastery record %s/%s", record.UserID, record.NodeID)
	}

	return nil
}

// UpdateVersioned applies the full score+state+attempt update only if the
// stored version still matches record.Version, so concurrent submissions for
// the same node apply serially instead of last-writer-wins.
func (r *MasteryRepository) UpdateVersioned(ctx context.Context, record *models.NodeMasteryRecord) error {
	filter := bson.M{
		"user_id": record.UserID,
		"node_id": record.NodeID,
		"version": record.Version,
	}

	update := bson.M{
		"$set": bson.M{
			"score":             record.Score,
			"state":             record.State,
			"attempt_count":     record.AttemptCount,
			"last_evaluated_at": record.LastEvaluatedAt,
			"updated_at":        time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return apperror.Storage(err, "failed to update mastery record %s/%s", record.UserID, record.NodeID)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrConflict, record.UserID, record.NodeID)
	}

	return nil
}

// ListByUser returns the user's mastery records ordered weakest first, ties
// broken by most recent evaluation.
func (r *MasteryRepository) ListByUser(ctx context.Context, userID string, state models.NodeState, limit int) ([]*models.NodeMasteryRecord, error) {
	filter := bson.M{"user_id": userID}
	if state != "" {
		filter["state"] = state
	}

	findOpts := options.Find().
		SetSort(bson.D{
			{Key: "score", Value: 1},
			{Key: "last_evaluated_at", Value: -1},
		})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, apperror.Storage(err, "failed to list mastery records for user %s", userID)
	}
	defer cursor.Close(ctx)

	var records []*models.NodeMasteryRecord
	for cursor.Next(ctx) {
		var record models.NodeMasteryRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, apperror.Storage(err, "failed to decode mastery record")
		}
		records = append(records, &record)
	}
	if err := cursor.Err(); err != nil {
		return nil, apperror.Storage(err, "failed to iterate mastery records for user %s", userID)
	}

	return records, nil
}
