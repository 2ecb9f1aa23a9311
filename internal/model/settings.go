package model

type SystemSettings struct {
	QuestClearExp  int64 `json:"questClearExp"`
	QuestClearGold int64 `json:"questClearGold"`
	MaxRewardCount int   `json:"maxRewardCount"`
}
