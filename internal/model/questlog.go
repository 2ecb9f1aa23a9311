package model

import (
	"math"
	"time"
)

type QuestLog struct {
	ID         int64
	QuestID    int64
	UserID     int64
	State      QuestState
	Type       QuestType
	LoggedDate time.Time
	CreatedAt  time.Time
}

func NewQuestLog(q *Quest, loggedDate time.Time) *QuestLog {
	return &QuestLog{
		QuestID:    q.ID,
		UserID:     q.UserID,
		State:      q.State,
		Type:       q.Type,
		LoggedDate: loggedDate,
	}
}

type StatisticsPeriod string

const (
	StatisticsDaily   StatisticsPeriod = "DAILY"
	StatisticsWeekly  StatisticsPeriod = "WEEKLY"
	StatisticsMonthly StatisticsPeriod = "MONTHLY"
)

func (p StatisticsPeriod) Valid() bool {
	return p == StatisticsDaily || p == StatisticsWeekly || p == StatisticsMonthly
}

// QuestLogCount is one grouped row of the quest log table.
type QuestLogCount struct {
	LoggedDate time.Time
	State      QuestState
	Type       QuestType
	Count      int64
}

type QuestStatistics struct {
	Date          time.Time
	Registered    int64
	Completed     int64
	Failed        int64
	Discarded     int64
	Main          int64
	Sub           int64
	CompleteRatio float64
	FailRatio     float64
	DiscardRatio  float64
	MainRatio     float64
	SubRatio      float64
}

func NewQuestStatistics(date time.Time) *QuestStatistics {
	return &QuestStatistics{Date: date}
}

// Add folds a grouped log row in. Registrations are counted separately and do
// not take part in the state or type ratios.
func (s *QuestStatistics) Add(c QuestLogCount) {
	switch c.State {
	case QuestStateProceed:
		s.Registered += c.Count
		return
	case QuestStateComplete:
		s.Completed += c.Count
	case QuestStateFail:
		s.Failed += c.Count
	case QuestStateDiscard:
		s.Discarded += c.Count
	default:
		return
	}

	switch c.Type {
	case QuestTypeMain:
		s.Main += c.Count
	case QuestTypeSub:
		s.Sub += c.Count
	}
}

func (s *QuestStatistics) CalcRatios() {
	states := s.Completed + s.Failed + s.Discarded
	s.CompleteRatio = ratio(s.Completed, states)
	s.FailRatio = ratio(s.Failed, states)
	s.DiscardRatio = ratio(s.Discarded, states)

	types := s.Main + s.Sub
	s.MainRatio = ratio(s.Main, types)
	s.SubRatio = ratio(s.Sub, types)
}

// ratio is a percentage rounded to one decimal place.
func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}
