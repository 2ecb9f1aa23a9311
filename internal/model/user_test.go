package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_UpdateCoreTime(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	recently := now.Add(-time.Hour)
	longAgo := now.Add(-25 * time.Hour)

	tests := []struct {
		name         string
		lastModified *time.Time
		hour         *int
		expected     bool
		expectedCore int
	}{
		{name: "nil hour", hour: nil, expected: true, expectedCore: 8},
		{name: "same hour", lastModified: &recently, hour: intPtr(8), expected: true, expectedCore: 8},
		{name: "never modified", hour: intPtr(10), expected: true, expectedCore: 10},
		{name: "modified a day ago", lastModified: &longAgo, hour: intPtr(10), expected: true, expectedCore: 10},
		{name: "modified recently", lastModified: &recently, hour: intPtr(10), expected: false, expectedCore: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{CoreTime: 8, CoreTimeLastModifiedAt: tt.lastModified}

			assert.Equal(t, tt.expected, u.UpdateCoreTime(tt.hour, now))
			assert.Equal(t, tt.expectedCore, u.CoreTime)
		})
	}
}

func TestUser_IsCoreTime(t *testing.T) {
	u := &User{CoreTime: 8}
	day := func(h, m int) time.Time {
		return time.Date(2024, 5, 10, h, m, 0, 0, time.UTC)
	}

	assert.False(t, u.IsCoreTime(day(7, 59)))
	assert.True(t, u.IsCoreTime(day(8, 0)))
	assert.True(t, u.IsCoreTime(day(8, 59)))
	assert.True(t, u.IsCoreTime(day(9, 0)))
	assert.False(t, u.IsCoreTime(day(9, 1)))
}

func TestUser_Streaks(t *testing.T) {
	u := &User{}
	d1 := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	u.RecordRegistration(d1)
	u.RecordRegistration(d1)
	assert.Equal(t, int64(2), u.QuestRegistrationCount)
	assert.Equal(t, int64(1), u.CurrentRegistrationDays)

	u.RecordRegistration(d1.AddDate(0, 0, 1))
	u.RecordRegistration(d1.AddDate(0, 0, 2))
	assert.Equal(t, int64(3), u.CurrentRegistrationDays)
	assert.Equal(t, int64(3), u.MaxRegistrationDays)

	u.RecordRegistration(d1.AddDate(0, 0, 5))
	assert.Equal(t, int64(1), u.CurrentRegistrationDays)
	assert.Equal(t, int64(3), u.MaxRegistrationDays)

	u.RecordCompletion(d1)
	assert.Equal(t, int64(1), u.QuestCompletionCount)
	assert.Equal(t, int64(1), u.MaxCompletionDays)
}

func TestUser_AddExpAndGold(t *testing.T) {
	u := &User{Exp: 10, Gold: 5, GoldEarnAmount: 5}
	u.AddExpAndGold(20, 7)

	assert.Equal(t, int64(30), u.Exp)
	assert.Equal(t, int64(12), u.Gold)
	assert.Equal(t, int64(12), u.GoldEarnAmount)
}

func TestExpTable_LevelOf(t *testing.T) {
	table := ExpTable{1: 10, 2: 20, 3: 0, 4: 40}

	tests := []struct {
		exp      int64
		expected Level
	}{
		{exp: 0, expected: Level{Level: 1, CurrentExp: 0, RequiredExp: 10}},
		{exp: 9, expected: Level{Level: 1, CurrentExp: 9, RequiredExp: 10}},
		{exp: 10, expected: Level{Level: 2, CurrentExp: 0, RequiredExp: 20}},
		{exp: 35, expected: Level{Level: 3, CurrentExp: 5, RequiredExp: 40}},
		{exp: 75, expected: Level{Level: 4, CurrentExp: 5, RequiredExp: 40}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, table.LevelOf(tt.exp))
	}
}
