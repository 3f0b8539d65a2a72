package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// EngagementEventType is the closed set of loggable interactions.
type EngagementEventType string

const (
	EngagementCapsuleViewed    EngagementEventType = "capsule_viewed"
	EngagementCapsuleCompleted EngagementEventType = "capsule_completed"
	EngagementRetrievalStarted EngagementEventType = "retrieval_started"
	EngagementNodeRevisited    EngagementEventType = "node_revisited"
	EngagementHintRequested    EngagementEventType = "hint_requested"
)

func (t EngagementEventType) Valid() bool {
	switch t {
	case EngagementCapsuleViewed, EngagementCapsuleCompleted,
		EngagementRetrievalStarted, EngagementNodeRevisited, EngagementHintRequested:
		return true
	}
	return false
}

// EngagementEvent is an append-only telemetry record. Immutable once written;
// the engines never read it back.
type EngagementEvent struct {
	ID        bson.ObjectID       `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string              `bson:"user_id" json:"user_id"`
	NodeID    string              `bson:"node_id" json:"node_id"`
	EventType EngagementEventType `bson:"event_type" json:"event_type"`
	CapsuleID string              `bson:"capsule_id,omitempty" json:"capsule_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}

// LogEngagementRequest is the body of a telemetry post.
type LogEngagementRequest struct {
	NodeID    string `json:"node_id"`
	EventType string `json:"event_type"`
	CapsuleID string `json:"capsule_id,omitempty"`
}

func GetEngagementEventIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "node_id", Value: 1},
				{Key: "event_type", Value: 1},
			},
		},
	}
}
