package model

import (
	"sort"
	"time"
)

type ProviderType string

const (
	ProviderTelegram ProviderType = "TELEGRAM"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

const (
	DefaultCoreTime        = 8
	MaxNicknameLength      = 20
	CoreTimeUpdateInterval = 24 * time.Hour
)

type User struct {
	ID                      int64
	OAuth2ID                string
	Provider                ProviderType
	Nickname                string
	Role                    Role
	CoreTime                int
	CoreTimeLastModifiedAt  *time.Time
	Exp                     int64
	Gold                    int64
	GoldEarnAmount          int64
	QuestRegistrationCount  int64
	QuestCompletionCount    int64
	CurrentRegistrationDays int64
	CurrentCompletionDays   int64
	MaxRegistrationDays     int64
	MaxCompletionDays       int64
	LastRegistrationDate    *time.Time
	LastCompletionDate      *time.Time
	PerfectDayCount         int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func NewUser(oauth2ID string, provider ProviderType, nickname string) *User {
	return &User{
		OAuth2ID: oauth2ID,
		Provider: provider,
		Nickname: nickname,
		Role:     RoleUser,
		CoreTime: DefaultCoreTime,
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateCoreTime reports false when the change is refused because the core
// time was already modified within the last day. Passing nil or the current
// value is a no-op.
func (u *User) UpdateCoreTime(hour *int, now time.Time) bool {
	if hour == nil || *hour == u.CoreTime {
		return true
	}
	if !u.CanUpdateCoreTime(now) {
		return false
	}

	u.CoreTime = *hour
	u.CoreTimeLastModifiedAt = &now
	return true
}

func (u *User) CanUpdateCoreTime(now time.Time) bool {
	if u.CoreTimeLastModifiedAt == nil {
		return true
	}
	return now.After(u.CoreTimeLastModifiedAt.Add(CoreTimeUpdateInterval))
}

// CoreTimeAvailableAt is the moment the next core time change is accepted.
func (u *User) CoreTimeAvailableAt() *time.Time {
	if u.CoreTimeLastModifiedAt == nil {
		return nil
	}
	at := u.CoreTimeLastModifiedAt.Add(CoreTimeUpdateInterval)
	return &at
}

// IsCoreTime reports whether now is inside the user's one hour core window,
// both ends inclusive.
func (u *User) IsCoreTime(now time.Time) bool {
	y, m, d := now.Date()
	start := time.Date(y, m, d, u.CoreTime, 0, 0, 0, now.Location())
	end := start.Add(time.Hour)
	return !now.Before(start) && !now.After(end)
}

func (u *User) AddExpAndGold(exp, gold int64) {
	u.Exp += exp
	u.Gold += gold
	u.GoldEarnAmount += gold
}

func (u *User) RecordRegistration(loggedDate time.Time) {
	u.QuestRegistrationCount++
	u.CurrentRegistrationDays = nextStreak(u.LastRegistrationDate, u.CurrentRegistrationDays, loggedDate)
	if u.CurrentRegistrationDays > u.MaxRegistrationDays {
		u.MaxRegistrationDays = u.CurrentRegistrationDays
	}
	u.LastRegistrationDate = &loggedDate
}

func (u *User) RecordCompletion(loggedDate time.Time) {
	u.QuestCompletionCount++
	u.CurrentCompletionDays = nextStreak(u.LastCompletionDate, u.CurrentCompletionDays, loggedDate)
	if u.CurrentCompletionDays > u.MaxCompletionDays {
		u.MaxCompletionDays = u.CurrentCompletionDays
	}
	u.LastCompletionDate = &loggedDate
}

func nextStreak(last *time.Time, current int64, date time.Time) int64 {
	switch {
	case last == nil:
		return 1
	case last.Equal(date):
		if current == 0 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(date):
		return current + 1
	default:
		return 1
	}
}

// ExpTable maps a level to the exp required to leave it.
type ExpTable map[int]int64

type Level struct {
	Level       int
	CurrentExp  int64
	RequiredExp int64
}

// LevelOf walks the table in level order, consuming every non zero
// requirement the remaining exp covers.
func (t ExpTable) LevelOf(exp int64) Level {
	levels := make([]int, 0, len(t))
	for l := range t {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	result := Level{Level: 1, CurrentExp: exp}
	for _, l := range levels {
		required := t[l]
		result.RequiredExp = required
		if required == 0 {
			continue
		}
		if result.CurrentExp < required {
			return result
		}
		result.CurrentExp -= required
		result.Level++
	}

	return result
}
