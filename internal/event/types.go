package event

import "atlas-service/internal/models"

const (
	EventTypeMasteryEvaluated     = "mastery.evaluated"
	EventTypeMasteryNodeStable    = "mastery.node_stable"
	EventTypeTimelineMonthAdvance = "timeline.month_advanced"
	EventTypeEngagementLogged     = "engagement.logged"
)

type MasteryEvent struct {
	EventType     string           `json:"eventType"`
	UserID        string           `json:"userId"`
	NodeID        string           `json:"nodeId"`
	Score         float64          `json:"score"`
	PreviousScore float64          `json:"previousScore"`
	State         models.NodeState `json:"state"`
	Passed        bool             `json:"passed"`
	AttemptCount  int              `json:"attemptCount"`
	Timestamp     int64            `json:"timestamp"`
}

type TimelineEvent struct {
	EventType     string `json:"eventType"`
	UserID        string `json:"userId"`
	PreviousMonth int    `json:"previousMonth"`
	CurrentMonth  int    `json:"currentMonth"`
	Timestamp     int64  `json:"timestamp"`
}

type EngagementLoggedEvent struct {
	EventType string `json:"eventType"`
	UserID    string `json:"userId"`
	NodeID    string `json:"nodeId"`
	Kind      string `json:"kind"`
	CapsuleID string `json:"capsuleId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
