package services

import (
	"atlas-service/internal/apperror"
	"atlas-service/internal/catalog"
	"atlas-service/internal/config"
	"atlas-service/internal/event"
	"atlas-service/internal/models"
	"atlas-service/internal/repository"
	"context"
	"errors"
	"log"
	"time"
)

// MasteryStore is the persistence surface the mastery engine needs.
type MasteryStore interface {
	GetByUserAndNode(ctx context.Context, userID, nodeID string) (*models.NodeMasteryRecord, error)
	Insert(ctx context.Context, record *models.NodeMasteryRecord) error
	UpdateVersioned(ctx context.Context, record *models.NodeMasteryRecord) error
	ListByUser(ctx context.Context, userID string, state models.NodeState, limit int) ([]*models.NodeMasteryRecord, error)
}

// EngagementStore appends immutable telemetry events.
type EngagementStore interface {
	Append(ctx context.Context, event *models.EngagementEvent) error
}

// MasteryService is the weak-spot mastery engine: it scores retrieval
// submissions against atlas nodes, maintains the per-node mastery record,
// and classifies nodes for the remediation dashboard.
type MasteryService struct {
	store      MasteryStore
	engagement EngagementStore
	catalog    *catalog.Catalog
	publisher  event.Publisher
	cfg        config.MasteryConfig
	now        func() time.Time
}

func NewMasteryService(store MasteryStore, engagement EngagementStore, cat *catalog.Catalog, publisher event.Publisher, cfg config.MasteryConfig) *MasteryService {
	return &MasteryService{
		store:      store,
		engagement: engagement,
		catalog:    cat,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// EvaluateRetrieval scores one submission and folds it into the persistent
// mastery record. The read-modify-write is guarded by a version check and
// retried a bounded number of times; two concurrent submissions for the same
// node therefore apply serially and neither update is lost.
func (s *MasteryService) EvaluateRetrieval(ctx context.Context, userID, nodeID string, responses []models.RetrievalResponse) (*models.RetrievalVerdict, error) {
	if userID == "" {
		return nil, apperror.Validation("user ID is required")
	}
	if len(responses) == 0 {
		return nil, apperror.Validation("responses must not be empty")
	}
	if s.cfg.MaxResponsesPerSubmission > 0 && len(responses) > s.cfg.MaxResponsesPerSubmission {
		return nil, apperror.Validation("too many responses in one submission (max %d)", s.cfg.MaxResponsesPerSubmission)
	}

	node, ok := s.catalog.Node(nodeID)
	if !ok {
		return nil, apperror.NotFound("atlas node %s not found", nodeID)
	}

	thresholds := EffectiveThresholds(node, s.cfg)
	rawAccuracy := RawAccuracy(responses)

	var lastErr error
	for attempt := 0; attempt <= s.cfg.UpdateRetryLimit; attempt++ {
		verdict, wasStable, err := s.applyOnce(ctx, userID, nodeID, rawAccuracy, thresholds)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		s.publishVerdict(userID, verdict, wasStable)
		return verdict, nil
	}

	return nil, apperror.Storage(lastErr, "mastery update for %s/%s kept conflicting", userID, nodeID)
}

// applyOnce performs a single attempt of the read-modify-write. The second
// return value reports whether the record was already stable before this
// submission, so the caller can detect the transition.
func (s *MasteryService) applyOnce(ctx context.Context, userID, nodeID string, rawAccuracy float64, thresholds MasteryThresholds) (*models.RetrievalVerdict, bool, error) {
	record, err := s.store.GetByUserAndNode(ctx, userID, nodeID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()

	if record == nil {
		newScore := BlendScore(0, rawAccuracy, s.cfg.SmoothingFactor)
		state := ClassifyState(newScore, 0, thresholds)

		fresh := &models.NodeMasteryRecord{
			UserID:          userID,
			NodeID:          nodeID,
			Score:           newScore,
			State:           state,
			AttemptCount:    1,
			LastEvaluatedAt: now,
		}
		if err := s.store.Insert(ctx, fresh); err != nil {
			return nil, false, err
		}

		return &models.RetrievalVerdict{
			NodeID:        nodeID,
			Passed:        newScore >= thresholds.Pass,
			NewScore:      newScore,
			PreviousScore: 0,
			State:         state,
			AttemptCount:  1,
		}, false, nil
	}

	// The stored state is a projection only; whether the node was stable
	// before this submission is derived from the previous score, so a
	// threshold change cannot misfire or swallow the transition event.
	previousScore := record.Score
	wasStable := previousScore >= thresholds.Stable

	newScore := BlendScore(previousScore, rawAccuracy, s.cfg.SmoothingFactor)
	state := ClassifyState(newScore, previousScore, thresholds)

	record.Score = newScore
	record.State = state
	record.AttemptCount++
	record.LastEvaluatedAt = now

	if err := s.store.UpdateVersioned(ctx, record); err != nil {
		return nil, false, err
	}

	return &models.RetrievalVerdict{
		NodeID:        nodeID,
		Passed:        newScore >= thresholds.Pass,
		NewScore:      newScore,
		PreviousScore: previousScore,
		State:         state,
		AttemptCount:  record.AttemptCount,
	}, wasStable, nil
}

func (s *MasteryService) publishVerdict(userID string, verdict *models.RetrievalVerdict, wasStable bool) {
	if s.publisher == nil {
		return
	}

	now := s.now().Unix()
	if err := s.publisher.PublishMasteryEvent(&event.MasteryEvent{
		EventType:     event.EventTypeMasteryEvaluated,
		UserID:        userID,
		NodeID:        verdict.NodeID,
		Score:         verdict.NewScore,
		PreviousScore: verdict.PreviousScore,
		State:         verdict.State,
		Passed:        verdict.Passed,
		AttemptCount:  verdict.AttemptCount,
		Timestamp:     now,
	}); err != nil {
		log.Printf("Failed to publish mastery event for %s/%s: %v", userID, verdict.NodeID, err)
	}

	if verdict.State == models.NodeStateStable && !wasStable {
		if err := s.publisher.PublishMasteryEvent(&event.MasteryEvent{
			EventType:    event.EventTypeMasteryNodeStable,
			UserID:       userID,
			NodeID:       verdict.NodeID,
			Score:        verdict.NewScore,
			State:        verdict.State,
			Passed:       verdict.Passed,
			AttemptCount: verdict.AttemptCount,
			Timestamp:    now,
		}); err != nil {
			log.Printf("Failed to publish node-stable event for %s/%s: %v", userID, verdict.NodeID, err)
		}
	}
}

// GetUserWeakSpots lists the user's mastery records weakest first for the
// remediation dashboard. The limit is clamped to the configured window.
func (s *MasteryService) GetUserWeakSpots(ctx context.Context, userID string, stateFilter string, limit int) ([]*models.WeakSpot, error) {
	if userID == "" {
		return nil, apperror.Validation("user ID is required")
	}

	var state models.NodeState
	if stateFilter != "" {
		state = models.NodeState(stateFilter)
		if !state.Valid() {
			return nil, apperror.Validation("unknown node state %q", stateFilter)
		}
	}

	if limit < 1 {
		limit = 1
	}
	if s.cfg.MaxWeakSpotLimit > 0 && limit > s.cfg.MaxWeakSpotLimit {
		limit = s.cfg.MaxWeakSpotLimit
	}

	records, err := s.store.ListByUser(ctx, userID, state, limit)
	if err != nil {
		return nil, err
	}

	weakSpots := make([]*models.WeakSpot, 0, len(records))
	for _, record := range records {
		spot := &models.WeakSpot{
			NodeID:          record.NodeID,
			Score:           record.Score,
			State:           record.State,
			AttemptCount:    record.AttemptCount,
			LastEvaluatedAt: record.LastEvaluatedAt,
		}
		if node, ok := s.catalog.Node(record.NodeID); ok {
			spot.Title = node.Title
			spot.Subject = node.Subject
		}
		weakSpots = append(weakSpots, spot)
	}

	return weakSpots, nil
}

// LogEngagementEvent appends one telemetry event. An unrecognized event type
// is a business-rule rejection, not a storage failure, so the boundary can
// answer 400 instead of 500.
func (s *MasteryService) LogEngagementEvent(ctx context.Context, userID, nodeID, eventType, capsuleID string) error {
	if userID == "" {
		return apperror.Validation("user ID is required")
	}

	kind := models.EngagementEventType(eventType)
	if !kind.Valid() {
		return apperror.BusinessRule("invalid engagement event type %q", eventType)
	}

	if _, ok := s.catalog.Node(nodeID); !ok {
		return apperror.NotFound("atlas node %s not found", nodeID)
	}

	if err := s.engagement.Append(ctx, &models.EngagementEvent{
		UserID:    userID,
		NodeID:    nodeID,
		EventType: kind,
		CapsuleID: capsuleID,
		CreatedAt: s.now(),
	}); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEngagementEvent(&event.EngagementLoggedEvent{
			EventType: event.EventTypeEngagementLogged,
			UserID:    userID,
			NodeID:    nodeID,
			Kind:      eventType,
			CapsuleID: capsuleID,
			Timestamp: s.now().Unix(),
		}); err != nil {
			log.Printf("Failed to publish engagement event for %s/%s: %v", userID, nodeID, err)
		}
	}

	return nil
}
