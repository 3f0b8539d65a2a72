package services

import (
	"atlas-service/internal/config"
	"atlas-service/internal/models"
)

// MasteryThresholds are the effective cutoffs for one node, after falling
// back to configured defaults for anything the catalog entry leaves unset.
type MasteryThresholds struct {
	Pass      float64
	Improving float64
	Stable    float64
}

// EffectiveThresholds merges a node's own thresholds with the configured
// defaults.
func EffectiveThresholds(node models.AtlasNode, cfg config.MasteryConfig) MasteryThresholds {
	t := MasteryThresholds{
		Pass:      cfg.DefaultPassThreshold,
		Improving: cfg.DefaultImprovingThreshold,
		Stable:    cfg.DefaultStableThreshold,
	}
	if node.PassThreshold > 0 {
		t.Pass = node.PassThreshold
	}
	if node.ImprovingThreshold > 0 {
		t.Improving = node.ImprovingThreshold
	}
	if node.StableThreshold > 0 {
		t.Stable = node.StableThreshold
	}
	return t
}

// RawAccuracy is the fraction of correct responses in one submission.
func RawAccuracy(responses []models.RetrievalResponse) float64 {
	if len(responses) == 0 {
		return 0
	}
	correct := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(responses))
}

// BlendScore folds one submission into the running mastery score with an
// exponential moving average. Unlike a plain running average, recent
// attempts dominate, so sustained improvement or regression actually moves
// the score instead of drowning in history.
func BlendScore(previousScore, rawAccuracy, alpha float64) float64 {
	newScore := previousScore*(1-alpha) + rawAccuracy*alpha
	if newScore < 0 {
		return 0
	}
	if newScore > 1 {
		return 1
	}
	return newScore
}

// ClassifyState derives the node state from the fresh score and trend. It is
// a pure function: state is never trusted from storage, always recomputed, so
// threshold changes take effect without a migration. Stable is checked before
// improving, which resolves the tie when a score clears both thresholds at
// once.
func ClassifyState(newScore, previousScore float64, t MasteryThresholds) models.NodeState {
	if newScore >= t.Stable {
		return models.NodeStateStable
	}
	if newScore >= t.Improving && newScore > previousScore {
		return models.NodeStateImproving
	}
	return models.NodeStateActive
}
