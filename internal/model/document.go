package model

import "time"

// QuestDocument is the searchable projection of a quest.
type QuestDocument struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DetailTitles []string   `json:"detailTitles"`
	State        QuestState `json:"state"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func NewQuestDocument(q *Quest) *QuestDocument {
	titles := make([]string, 0, len(q.DetailQuests))
	for _, d := range q.DetailQuests {
		titles = append(titles, d.Title)
	}

	return &QuestDocument{
		ID:           q.ID,
		UserID:       q.UserID,
		Title:        q.Title,
		Description:  q.Description,
		DetailTitles: titles,
		State:        q.State,
		CreatedAt:    q.CreatedAt,
	}
}
