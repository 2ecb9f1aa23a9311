package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type NotificationType string

const (
	NotificationAchievementAchieve NotificationType = "ACHIEVEMENT_ACHIEVE"
	NotificationQuestDeadlineFail  NotificationType = "QUEST_DEADLINE_FAIL"
)

func (t NotificationType) Valid() bool {
	return t == NotificationAchievementAchieve || t == NotificationQuestDeadlineFail
}

type Notification struct {
	ID          int64
	UserID      int64
	Type        NotificationType
	Title       string
	Content     string
	Metadata    string
	ConfirmedAt *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
}

type achievementMetadata struct {
	AchievementID int64           `json:"achievementId"`
	Type          AchievementType `json:"type"`
	TargetValue   int64           `json:"targetValue"`
}

type questMetadata struct {
	QuestID int64 `json:"questId"`
	Seq     int64 `json:"seq"`
}

func NewAchieveNotification(userID int64, a *Achievement) *Notification {
	meta, _ := json.Marshal(achievementMetadata{
		AchievementID: a.ID,
		Type:          a.Type,
		TargetValue:   a.TargetValue,
	})

	return &Notification{
		UserID:   userID,
		Type:     NotificationAchievementAchieve,
		Title:    fmt.Sprintf("Achievement unlocked: %s", a.Title),
		Content:  a.Description,
		Metadata: string(meta),
	}
}

func NewDeadlineFailNotification(q *Quest) *Notification {
	meta, _ := json.Marshal(questMetadata{QuestID: q.ID, Seq: q.Seq})

	return &Notification{
		UserID:   q.UserID,
		Type:     NotificationQuestDeadlineFail,
		Title:    "Quest failed",
		Content:  fmt.Sprintf("Quest #%d %q missed its deadline", q.Seq, q.Title),
		Metadata: string(meta),
	}
}

type NotificationCondition struct {
	Type        *NotificationType
	Unconfirmed bool
}
