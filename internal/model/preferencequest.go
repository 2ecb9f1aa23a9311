package model

import "time"

// PreferenceQuest is a saved quest template a user registers quests from.
type PreferenceQuest struct {
	ID           int64
	UserID       int64
	Title        string
	Description  string
	DetailQuests []PreferenceDetailQuest
	// UsedCount is the number of quests registered from the template.
	UsedCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type PreferenceDetailQuest struct {
	Title       string          `json:"title"`
	Type        DetailQuestType `json:"type"`
	TargetCount int             `json:"target_count"`
}

func NewPreferenceQuest(userID int64, title, description string, details []PreferenceDetailQuest) *PreferenceQuest {
	if details == nil {
		details = []PreferenceDetailQuest{}
	}
	return &PreferenceQuest{
		UserID:       userID,
		Title:        title,
		Description:  description,
		DetailQuests: details,
	}
}
