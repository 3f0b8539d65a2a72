package repository

import (
	"atlas-service/internal/apperror"
	"atlas-service/internal/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type TimelineRepository struct {
	collection *mongo.Collection
}

func NewTimelineRepository(database *mongo.Database, collection string) *TimelineRepository {
	return &TimelineRepository{
		collection: database.Collection(collection),
	}
}

func (r *TimelineRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetTimelineProgressIndexes())
	if err != nil {
		return apperror.Storage(err, "failed to create timeline indexes")
	}
	return nil
}

// GetOrCreate loads the user's progress record, creating an empty one on the
// first unlock-status query. The upsert keeps concurrent first queries from
// racing each other.
func (r *TimelineRepository) GetOrCreate(ctx context.Context, userID string) (*models.TimelineProgress, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":               userID,
			"high_water_mark_month": 0,
			"is_legacy_user":        false,
			"created_at":            now,
			"updated_at":            now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var progress models.TimelineProgress
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&progress); err != nil {
		return nil, apperror.Storage(err, "failed to load timeline progress for user %s", userID)
	}

	return &progress, nil
}

// AdvanceHighWaterMark raises the user's high-water mark to month if it is
// higher than the stored value. $max makes the advance atomic, so concurrent
// unlock queries can never move the mark backwards.
func (r *TimelineRepository) AdvanceHighWaterMark(ctx context.Context, userID string, month int) (*models.TimelineProgress, error) {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$max": bson.M{"high_water_mark_month": month},
		"$set": bson.M{"updated_at": time.Now()},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var progress models.TimelineProgress
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&progress); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperror.NotFound("timeline progress not found for user %s", userID)
		}
		return nil, apperror.Storage(err, "failed to advance high-water mark for user %s", userID)
	}

	return &progress, nil
}

// SetExamDate replaces the user's exam target. The high-water mark is left
// untouched: moving the date earlier must never re-lock chapters.
func (r *TimelineRepository) SetExamDate(ctx context.Context, userID string, examDate time.Time, examSession string) (*models.TimelineProgress, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"exam_date":    examDate,
			"exam_session": examSession,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"user_id":               userID,
			"high_water_mark_month": 0,
			"is_legacy_user":        false,
			"created_at":            now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var progress models.TimelineProgress
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&progress); err != nil {
		return nil, apperror.Storage(err, "failed to set exam date for user %s", userID)
	}

	return &progress, nil
}
