package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NodeState classifies a node's remediation urgency.
type NodeState string

const (
	NodeStateActive    NodeState = "active"    // low or stagnant score, needs work
	NodeStateImproving NodeState = "improving" // above the improving threshold and rising
	NodeStateStable    NodeState = "stable"    // mastered
)

func (s NodeState) Valid() bool {
	switch s {
	case NodeStateActive, NodeStateImproving, NodeStateStable:
		return true
	}
	return false
}

// AtlasNode is a static knowledge-graph node with retrieval questions and
// mastery thresholds. Nodes may omit thresholds; the engine falls back to the
// configured defaults. Read-only to the engines.
type AtlasNode struct {
	NodeID             string  `json:"node_id"`
	Title              string  `json:"title"`
	Subject            string  `json:"subject,omitempty"`
	PassThreshold      float64 `json:"pass_threshold,omitempty"`
	ImprovingThreshold float64 `json:"improving_threshold,omitempty"`
	StableThreshold    float64 `json:"stable_threshold,omitempty"`
}

// NodeMasteryRecord is the per-user-per-node score record. The stored state
// is a projection convenience only: the engine always recomputes it from the
// score and trend, never trusts the stored value. Version guards the
// read-modify-write against concurrent submissions for the same node.
type NodeMasteryRecord struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          string        `bson:"user_id" json:"user_id"`
	NodeID          string        `bson:"node_id" json:"node_id"`
	Score           float64       `bson:"score" json:"score"`
	State           NodeState     `bson:"state" json:"state"`
	AttemptCount    int           `bson:"attempt_count" json:"attempt_count"`
	LastEvaluatedAt time.Time     `bson:"last_evaluated_at" json:"last_evaluated_at"`
	Version         int           `bson:"version" json:"-"` // optimistic concurrency control
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
}

// RetrievalResponse is a single graded answer within a submission.
type RetrievalResponse struct {
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
}

// EvaluateRetrievalRequest is the body of a retrieval submission.
type EvaluateRetrievalRequest struct {
	Responses []RetrievalResponse `json:"responses"`
}

// RetrievalVerdict is the decision object returned per submission. The
// remediation flow uses Passed to decide whether to keep surfacing the node.
type RetrievalVerdict struct {
	NodeID        string    `json:"node_id"`
	Passed        bool      `json:"passed"`
	NewScore      float64   `json:"new_score"`
	PreviousScore float64   `json:"previous_score"`
	State         NodeState `json:"state"`
	AttemptCount  int       `json:"attempt_count"`
}

// WeakSpot is the dashboard projection of a mastery record.
type WeakSpot struct {
	NodeID          string    `json:"node_id"`
	Title           string    `json:"title,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	Score           float64   `json:"score"`
	State           NodeState `json:"state"`
	AttemptCount    int       `json:"attempt_count"`
	LastEvaluatedAt time.Time `json:"last_evaluated_at"`
}

func GetNodeMasteryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "node_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "state", Value: 1},
				{Key: "score", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "score", Value: 1},
				{Key: "last_evaluated_at", Value: -1},
			},
		},
	}
}
