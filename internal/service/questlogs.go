package service

import (
	"context"
	"time"

	"dailyquest/internal/model"
	"dailyquest/pkg/dateutil"
)

type QuestLogService struct {
	repo QuestLogRepository
}

func NewQuestLogService(repo QuestLogRepository) *QuestLogService {
	return &QuestLogService{repo: repo}
}

// GetStatistics groups the user's quest logs around date: one entry per day
// of its month, per week of its quarter or per month of its year.
func (s *QuestLogService) GetStatistics(ctx context.Context, userID int64, date time.Time, period model.StatisticsPeriod) ([]*model.QuestStatistics, error) {
	date = dateutil.Date(date)

	var (
		from, to time.Time
		step     func(time.Time) time.Time
		bucket   func(time.Time) time.Time
	)

	switch period {
	case model.StatisticsDaily:
		from = dateutil.FirstDayOfMonth(date)
		to = from.AddDate(0, 1, -1)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		bucket = dateutil.Date
	case model.StatisticsWeekly:
		from = dateutil.FirstDayOfQuarter(date)
		to = dateutil.LastDayOfQuarter(date)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
		bucket = dateutil.FirstDayOfWeek
	case model.StatisticsMonthly:
		from = time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(date.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		bucket = dateutil.FirstDayOfMonth
	default:
		return nil, invalid("unknown statistics period %q", period)
	}

	counts, err := s.repo.GetQuestLogCounts(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	var stats []*model.QuestStatistics
	byKey := make(map[time.Time]*model.QuestStatistics)
	for t := from; !t.After(to); t = step(t) {
		entry := model.NewQuestStatistics(t)
		stats = append(stats, entry)
		byKey[t] = entry
	}

	for _, c := range counts {
		if entry, ok := byKey[bucket(c.LoggedDate)]; ok {
			entry.Add(c)
		}
	}

	for _, entry := range stats {
		entry.CalcRatios()
	}
	return stats, nil
}
