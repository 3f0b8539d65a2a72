package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TimelineProgress is the per-user unlock-progress record. The high-water
// mark only ever moves forward; it is what keeps chapters unlocked when a
// user moves their exam date earlier. Records are created on the first
// unlock-status query and never deleted.
type TimelineProgress struct {
	ID                 bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID             string        `bson:"user_id" json:"user_id"`
	HighWaterMarkMonth int           `bson:"high_water_mark_month" json:"high_water_mark_month"`
	ExamDate           *time.Time    `bson:"exam_date,omitempty" json:"exam_date,omitempty"`
	ExamSession        string        `bson:"exam_session,omitempty" json:"exam_session,omitempty"`
	IsLegacyUser       bool          `bson:"is_legacy_user" json:"is_legacy_user"`
	CreatedAt          time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updated_at"`
}

// Chapter is a static catalog entry: a content unit that becomes available
// once the effective timeline month reaches its unlock offset. Read-only to
// the engines.
type Chapter struct {
	ChapterKey        string `json:"chapter_key"`
	Title             string `json:"title"`
	Subject           string `json:"subject,omitempty"`
	UnlockMonthOffset int    `json:"unlock_month_offset"`
}

// UnlockStatus is the full decision object returned by the unlock engine.
type UnlockStatus struct {
	UnlockedChapterKeys []string `json:"unlocked_chapter_keys"`
	CurrentMonth        int      `json:"current_month"`
	MonthsUntilExam     int      `json:"months_until_exam"`
	TotalMonths         int      `json:"total_months"`
	IsPostExam          bool     `json:"is_post_exam"`
	ExamSession         string   `json:"exam_session,omitempty"`
	UsingHighWaterMark  bool     `json:"using_high_water_mark"`
	IsLegacyUser        bool     `json:"is_legacy_user"`
}

// SetExamDateRequest updates a user's exam target.
type SetExamDateRequest struct {
	ExamDate    time.Time `json:"exam_date"`
	ExamSession string    `json:"exam_session,omitempty"`
}

func GetTimelineProgressIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "exam_date", Value: 1},
			},
		},
	}
}
