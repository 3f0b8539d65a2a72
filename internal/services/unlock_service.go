package services

import (
	"atlas-service/internal/apperror"
	"atlas-service/internal/catalog"
	"atlas-service/internal/config"
	"atlas-service/internal/event"
	"atlas-service/internal/models"
	"context"
	"log"
	"math"
	"time"
)

// TimelineStore is the persistence surface the unlock engine needs. The
// mongo repository satisfies it; tests use an in-memory fake.
type TimelineStore interface {
	GetOrCreate(ctx context.Context, userID string) (*models.TimelineProgress, error)
	AdvanceHighWaterMark(ctx context.Context, userID string, month int) (*models.TimelineProgress, error)
	SetExamDate(ctx context.Context, userID string, examDate time.Time, examSession string) (*models.TimelineProgress, error)
}

// UnlockCache caches computed unlock status. A miss is never an error.
type UnlockCache interface {
	Get(ctx context.Context, userID string) (*models.UnlockStatus, bool)
	Set(ctx context.Context, userID string, status *models.UnlockStatus)
	Invalidate(ctx context.Context, userID string)
}

// UnlockService is the chapter unlock engine: it maps (user, now) to the set
// of visible chapters over the fixed exam countdown. The high-water mark
// guarantees chapters never re-lock when the exam date moves earlier or the
// clock steps backwards.
type UnlockService struct {
	store     TimelineStore
	catalog   *catalog.Catalog
	publisher event.Publisher
	cache     UnlockCache
	cfg       config.TimelineConfig
	now       func() time.Time
}

func NewUnlockService(store TimelineStore, cat *catalog.Catalog, publisher event.Publisher, cache UnlockCache, cfg config.TimelineConfig) *UnlockService {
	return &UnlockService{
		store:     store,
		catalog:   cat,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
	}
}

// GetUnlockedChapters computes the full unlock status for a user, advancing
// and persisting the high-water mark when the calendar has moved past it.
func (s *UnlockService) GetUnlockedChapters(ctx context.Context, userID string) (*models.UnlockStatus, error) {
	if s.cache != nil {
		if status, ok := s.cache.Get(ctx, userID); ok {
			return status, nil
		}
	}

	progress, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	status, err := s.resolve(ctx, progress)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, status)
	}
	return status, nil
}

// IsChapterUnlocked answers the single-chapter check through the exact same
// month resolution as GetUnlockedChapters, so the two can never diverge.
// Unknown chapter keys are locked, not errors.
func (s *UnlockService) IsChapterUnlocked(ctx context.Context, userID, chapterKey string) (bool, error) {
	if _, known := s.catalog.Chapter(chapterKey); !known {
		return false, nil
	}

	status, err := s.GetUnlockedChapters(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, key := range status.UnlockedChapterKeys {
		if key == chapterKey {
			return true, nil
		}
	}
	return false, nil
}

// SetExamDate updates the user's exam target. The high-water mark stays put,
// which is what keeps already-unlocked chapters visible when the new date
// shrinks the countdown.
func (s *UnlockService) SetExamDate(ctx context.Context, userID string, examDate time.Time, examSession string) (*models.UnlockStatus, error) {
	if examDate.IsZero() {
		return nil, apperror.Validation("exam date is required")
	}

	progress, err := s.store.SetExamDate(ctx, userID, examDate, examSession)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}

	status, err := s.resolve(ctx, progress)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, status)
	}
	return status, nil
}

// resolve turns a progress record into the decision object. It is the single
// place month arithmetic happens.
func (s *UnlockService) resolve(ctx context.Context, progress *models.TimelineProgress) (*models.UnlockStatus, error) {
	now := s.now()

	monthsUntilExam := s.cfg.DefaultCountdown
	isPostExam := false
	if progress.ExamDate != nil {
		monthsUntilExam = monthsUntil(now, *progress.ExamDate)
		isPostExam = now.After(*progress.ExamDate)
	}

	calendarMonth := clampMonth(s.cfg.TotalMonths-monthsUntilExam, s.cfg.TotalMonths)

	effectiveMonth := calendarMonth
	usingHighWaterMark := progress.HighWaterMarkMonth > calendarMonth
	if usingHighWaterMark {
		effectiveMonth = progress.HighWaterMarkMonth
	}

	if calendarMonth > progress.HighWaterMarkMonth {
		previous := progress.HighWaterMarkMonth
		updated, err := s.store.AdvanceHighWaterMark(ctx, progress.UserID, calendarMonth)
		if err != nil {
			return nil, err
		}
		progress = updated

		if s.publisher != nil {
			if err := s.publisher.PublishTimelineEvent(&event.TimelineEvent{
				EventType:     event.EventTypeTimelineMonthAdvance,
				UserID:        progress.UserID,
				PreviousMonth: previous,
				CurrentMonth:  calendarMonth,
				Timestamp:     now.Unix(),
			}); err != nil {
				log.Printf("Failed to publish timeline event for user %s: %v", progress.UserID, err)
			}
		}
	}

	unlocked := make([]string, 0, s.catalog.ChapterCount())
	for _, chapter := range s.catalog.Chapters() {
		if progress.IsLegacyUser || chapter.UnlockMonthOffset <= effectiveMonth {
			unlocked = append(unlocked, chapter.ChapterKey)
		}
	}

	return &models.UnlockStatus{
		UnlockedChapterKeys: unlocked,
		CurrentMonth:        effectiveMonth,
		MonthsUntilExam:     monthsUntilExam,
		TotalMonths:         s.cfg.TotalMonths,
		IsPostExam:          isPostExam,
		ExamSession:         progress.ExamSession,
		UsingHighWaterMark:  usingHighWaterMark,
		IsLegacyUser:        progress.IsLegacyUser,
	}, nil
}

// monthsUntil counts 30-day months between now and the exam, rounded up.
// Past dates report zero months remaining.
func monthsUntil(now, examDate time.Time) int {
	days := examDate.Sub(now).Hours() / 24
	if days <= 0 {
		return 0
	}
	return int(math.Ceil(days / 30))
}

func clampMonth(month, total int) int {
	if month < 0 {
		return 0
	}
	if month > total {
		return total
	}
	return month
}
