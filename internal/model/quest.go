package model

import (
	"errors"
	"time"
)

type QuestState string

const (
	QuestStateProceed  QuestState = "PROCEED"
	QuestStateComplete QuestState = "COMPLETE"
	QuestStateFail     QuestState = "FAIL"
	QuestStateDiscard  QuestState = "DISCARD"
	QuestStateDelete   QuestState = "DELETE"
)

func (s QuestState) Valid() bool {
	switch s {
	case QuestStateProceed, QuestStateComplete, QuestStateFail, QuestStateDiscard, QuestStateDelete:
		return true
	}
	return false
}

type QuestType string

const (
	QuestTypeMain QuestType = "MAIN"
	QuestTypeSub  QuestType = "SUB"
)

const (
	MaxQuestTitleLength       = 50
	MaxQuestDescriptionLength = 300
	MaxDetailQuests           = 5
)

var (
	ErrQuestDeleted           = errors.New("quest is deleted")
	ErrQuestNotProceed        = errors.New("quest is not in progress")
	ErrDetailQuestsIncomplete = errors.New("all detail quests must be completed first")
	ErrDetailQuestNotFound    = errors.New("detail quest not found")
)

type Quest struct {
	ID           int64
	UserID       int64
	Seq          int64
	Title        string
	Description  string
	State        QuestState
	Type         QuestType
	DeadLine     *time.Time
	DetailQuests []*DetailQuest
	// PreferenceQuestID is set when the quest was registered from a saved
	// preference quest.
	PreferenceQuestID *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewQuest(userID, seq int64, title, description string, questType QuestType, deadLine *time.Time) *Quest {
	return &Quest{
		UserID:      userID,
		Seq:         seq,
		Title:       title,
		Description: description,
		State:       QuestStateProceed,
		Type:        questType,
		DeadLine:    deadLine,
	}
}

func (q *Quest) IsProceed() bool {
	return q.State == QuestStateProceed
}

func (q *Quest) IsMain() bool {
	return q.Type == QuestTypeMain
}

func (q *Quest) IsOwnedBy(userID int64) bool {
	return q.UserID == userID
}

// CanComplete reports whether every detail quest is complete. A quest
// without details can always be completed.
func (q *Quest) CanComplete() bool {
	for _, d := range q.DetailQuests {
		if !d.IsCompleted() {
			return false
		}
	}
	return true
}

func (q *Quest) Complete() error {
	if q.State == QuestStateDelete {
		return ErrQuestDeleted
	}
	if !q.IsProceed() {
		return ErrQuestNotProceed
	}
	if !q.CanComplete() {
		return ErrDetailQuestsIncomplete
	}

	q.State = QuestStateComplete
	return nil
}

func (q *Quest) Discard() error {
	if q.State == QuestStateDelete {
		return ErrQuestDeleted
	}
	if !q.IsProceed() {
		return ErrQuestNotProceed
	}

	q.State = QuestStateDiscard
	return nil
}

func (q *Quest) Fail() error {
	if !q.IsProceed() {
		return ErrQuestNotProceed
	}

	q.State = QuestStateFail
	return nil
}

func (q *Quest) Delete() error {
	if q.State == QuestStateDelete {
		return ErrQuestDeleted
	}

	q.State = QuestStateDelete
	return nil
}

// Update replaces the editable fields. Detail quests are replaced as a whole;
// a detail that keeps the id and type of an existing one keeps its progress,
// clamped to the new target. Any other detail starts over.
func (q *Quest) Update(title, description string, deadLine *time.Time, details []*DetailQuest) error {
	if q.State == QuestStateDelete {
		return ErrQuestDeleted
	}
	if !q.IsProceed() {
		return ErrQuestNotProceed
	}

	q.Title = title
	q.Description = description
	q.DeadLine = deadLine

	if details == nil {
		details = []*DetailQuest{}
	}

	kept := make(map[int64]struct{}, len(details))
	for _, d := range details {
		d.QuestID = q.ID

		prev := q.detail(d.ID)
		if _, dup := kept[d.ID]; prev == nil || dup || prev.Type != d.Type {
			d.ID = 0
			d.resetCount()
			continue
		}

		kept[d.ID] = struct{}{}
		d.changeCount(prev.Count)
	}
	q.DetailQuests = details

	return nil
}

func (q *Quest) detail(id int64) *DetailQuest {
	if id == 0 {
		return nil
	}
	for _, d := range q.DetailQuests {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (q *Quest) InteractWithDetail(detailID int64, count *int) (*DetailQuest, error) {
	if q.State == QuestStateDelete {
		return nil, ErrQuestDeleted
	}
	if !q.IsProceed() {
		return nil, ErrQuestNotProceed
	}

	d := q.detail(detailID)
	if d == nil {
		return nil, ErrDetailQuestNotFound
	}

	d.Interact(count)
	return d, nil
}

// DeadLineRange returns the open interval a deadline registered at now must
// fall into: more than five minutes ahead and more than five minutes before
// the next daily reset.
func DeadLineRange(now, nextReset time.Time) (time.Time, time.Time) {
	now = now.Truncate(time.Minute)
	return now.Add(5 * time.Minute), nextReset.Add(-5 * time.Minute)
}

type DetailQuestType string

const (
	DetailQuestTypeCheck DetailQuestType = "CHECK"
	DetailQuestTypeCount DetailQuestType = "COUNT"
)

type DetailQuestState string

const (
	DetailQuestStateProceed  DetailQuestState = "PROCEED"
	DetailQuestStateComplete DetailQuestState = "COMPLETE"
)

const (
	MaxDetailTitleLength = 50
	MinTargetCount       = 1
	MaxTargetCount       = 255
)

type DetailQuest struct {
	ID          int64
	QuestID     int64
	Title       string
	Type        DetailQuestType
	State       DetailQuestState
	TargetCount int
	Count       int
}

func NewDetailQuest(title string, detailType DetailQuestType, targetCount int) *DetailQuest {
	if detailType == DetailQuestTypeCheck {
		targetCount = 1
	}

	return &DetailQuest{
		Title:       title,
		Type:        detailType,
		State:       DetailQuestStateProceed,
		TargetCount: targetCount,
	}
}

func (d *DetailQuest) IsCompleted() bool {
	return d.State == DetailQuestStateComplete
}

// Interact sets the count when one is given, otherwise toggles a completed
// detail back to zero or advances it by one.
func (d *DetailQuest) Interact(count *int) {
	switch {
	case count != nil:
		d.changeCount(*count)
	case d.IsCompleted():
		d.resetCount()
	default:
		d.addCount()
	}
}

func (d *DetailQuest) changeCount(count int) {
	if count < 0 {
		count = 0
	}
	if count > d.TargetCount {
		count = d.TargetCount
	}

	d.Count = count
	d.syncState()
}

func (d *DetailQuest) addCount() {
	if d.Count < d.TargetCount {
		d.Count++
	}
	d.syncState()
}

func (d *DetailQuest) resetCount() {
	d.Count = 0
	d.syncState()
}

func (d *DetailQuest) syncState() {
	if d.Count >= d.TargetCount {
		d.State = DetailQuestStateComplete
		return
	}
	d.State = DetailQuestStateProceed
}

type QuestSearchCondition struct {
	UserID      int64
	State       *QuestState
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Keyword     string
	// IDs restricts the result when a keyword was resolved through the
	// search index. nil means no restriction.
	IDs []int64
}
