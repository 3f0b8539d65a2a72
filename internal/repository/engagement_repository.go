package repository

import (
	"atlas-service/internal/apperror"
	"atlas-service/internal/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type EngagementRepository struct {
	collection *mongo.Collection
}

func NewEngagementRepository(database *mongo.Database, collection string) *EngagementRepository {
	return &EngagementRepository{
		collection: database.Collection(collection),
	}
}

func (r *EngagementRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetEngagementEventIndexes())
	if err != nil {
		return apperror.Storage(err, "failed to create engagement indexes")
	}
	return nil
}

// Append writes one immutable telemetry event. There is no update path on
// this collection.
func (r *EngagementRepository) Append(ctx context.Context, event *models.EngagementEvent) error {
	if event.ID.IsZero() {
		event.ID = bson.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return apperror.Storage(err, "failed to append engagement event for user %s", event.UserID)
	}

	return nil
}
