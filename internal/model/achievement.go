package model

import "time"

type AchievementType string

const (
	AchievementQuestRegistration               AchievementType = "QUEST_REGISTRATION"
	AchievementQuestCompletion                 AchievementType = "QUEST_COMPLETION"
	AchievementQuestContinuousRegistrationDays AchievementType = "QUEST_CONTINUOUS_REGISTRATION_DAYS"
	AchievementQuestContinuousCompletion       AchievementType = "QUEST_CONTINUOUS_COMPLETION"
	AchievementUserLevel                       AchievementType = "USER_LEVEL"
	AchievementGoldEarn                        AchievementType = "GOLD_EARN"
	AchievementPerfectDay                      AchievementType = "PERFECT_DAY"
)

var AchievementTypes = []AchievementType{
	AchievementQuestRegistration,
	AchievementQuestCompletion,
	AchievementQuestContinuousRegistrationDays,
	AchievementQuestContinuousCompletion,
	AchievementUserLevel,
	AchievementGoldEarn,
	AchievementPerfectDay,
}

func (t AchievementType) Valid() bool {
	for _, v := range AchievementTypes {
		if v == t {
			return true
		}
	}
	return false
}

// CurrentValue reads the counter an achievement of this type is measured on.
func (t AchievementType) CurrentValue(u *User, level int) int64 {
	switch t {
	case AchievementQuestRegistration:
		return u.QuestRegistrationCount
	case AchievementQuestCompletion:
		return u.QuestCompletionCount
	case AchievementQuestContinuousRegistrationDays:
		return u.MaxRegistrationDays
	case AchievementQuestContinuousCompletion:
		return u.MaxCompletionDays
	case AchievementUserLevel:
		return int64(level)
	case AchievementGoldEarn:
		return u.GoldEarnAmount
	case AchievementPerfectDay:
		return u.PerfectDayCount
	}
	return 0
}

type Achievement struct {
	ID          int64
	Title       string
	Description string
	Type        AchievementType
	TargetValue int64
	IsActive    bool
	CreatedAt   time.Time
}

func (a *Achievement) CanAchieve(value int64) bool {
	return a.IsActive && value >= a.TargetValue
}

type AchievementAchieveLog struct {
	ID            int64
	AchievementID int64
	UserID        int64
	AchievedAt    time.Time
}

type AchievedAchievement struct {
	Achievement
	AchievedAt time.Time
}
