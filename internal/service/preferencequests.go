package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
)

// PreferenceQuestRequest describes a quest template. It follows the same
// limits as a quest without a deadline.
type PreferenceQuestRequest struct {
	Title       string
	Description string
	Details     []DetailQuestRequest
}

func (r PreferenceQuestRequest) questRequest() QuestRequest {
	return QuestRequest{
		Title:       r.Title,
		Description: r.Description,
		Details:     r.Details,
	}
}

func (r PreferenceQuestRequest) detailQuests() []model.PreferenceDetailQuest {
	details := make([]model.PreferenceDetailQuest, len(r.Details))
	for i, d := range r.Details {
		target := d.TargetCount
		if d.Type == model.DetailQuestTypeCheck {
			target = 1
		}
		details[i] = model.PreferenceDetailQuest{
			Title:       strings.TrimSpace(d.Title),
			Type:        d.Type,
			TargetCount: target,
		}
	}
	return details
}

type PreferenceQuestService struct {
	repo   PreferenceQuestRepository
	quests QuestCreator
	now    func() time.Time
}

func NewPreferenceQuestService(repo PreferenceQuestRepository, quests QuestCreator) *PreferenceQuestService {
	return &PreferenceQuestService{
		repo:   repo,
		quests: quests,
		now:    time.Now,
	}
}

func mapPreferenceErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPreferenceQuestNotFound
	}
	return err
}

// GetActivePreferenceQuests lists the user's templates that are not deleted,
// each with the number of quests registered from it.
func (s *PreferenceQuestService) GetActivePreferenceQuests(ctx context.Context, userID int64) ([]*model.PreferenceQuest, error) {
	return s.repo.GetActivePreferenceQuests(ctx, userID)
}

func (s *PreferenceQuestService) GetPreferenceQuest(ctx context.Context, userID, id int64) (*model.PreferenceQuest, error) {
	p, err := s.repo.GetPreferenceQuest(ctx, userID, id)
	if err != nil {
		return nil, mapPreferenceErr(err)
	}
	return p, nil
}

func (s *PreferenceQuestService) CreatePreferenceQuest(ctx context.Context, userID int64, req PreferenceQuestRequest) (*model.PreferenceQuest, error) {
	if err := req.questRequest().validate(); err != nil {
		return nil, err
	}

	p := model.NewPreferenceQuest(userID, strings.TrimSpace(req.Title), req.Description, req.detailQuests())
	if err := s.repo.CreatePreferenceQuest(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PreferenceQuestService) UpdatePreferenceQuest(ctx context.Context, userID, id int64, req PreferenceQuestRequest) (*model.PreferenceQuest, error) {
	if err := req.questRequest().validate(); err != nil {
		return nil, err
	}

	p, err := s.GetPreferenceQuest(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(req.Title)
	p.Description = req.Description
	p.DetailQuests = req.detailQuests()

	if err = s.repo.UpdatePreferenceQuest(ctx, p); err != nil {
		return nil, mapPreferenceErr(err)
	}
	return p, nil
}

func (s *PreferenceQuestService) DeletePreferenceQuest(ctx context.Context, userID, id int64) error {
	return mapPreferenceErr(s.repo.DeletePreferenceQuest(ctx, userID, id, s.now()))
}

// RegisterQuest registers a new quest from the template. The quest goes
// through the regular quest registration.
func (s *PreferenceQuestService) RegisterQuest(ctx context.Context, userID, id int64) (*model.Quest, error) {
	p, err := s.GetPreferenceQuest(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	details := make([]DetailQuestRequest, len(p.DetailQuests))
	for i, d := range p.DetailQuests {
		details[i] = DetailQuestRequest{Title: d.Title, Type: d.Type, TargetCount: d.TargetCount}
	}

	return s.quests.CreateQuest(ctx, userID, QuestRequest{
		Title:             p.Title,
		Description:       p.Description,
		Details:           details,
		PreferenceQuestID: &p.ID,
	})
}
