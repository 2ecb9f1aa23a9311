package service

import (
	"context"
	"errors"

	"dailyquest/internal/model"
	"dailyquest/internal/repository"
	"dailyquest/pkg/logger"

	"go.uber.org/zap"
)

// SettingsService serves the reward settings and the exp table, falling back
// to configured defaults until an admin stores a value.
type SettingsService struct {
	store           SettingsStore
	defaultSettings model.SystemSettings
	defaultExpTable model.ExpTable
}

func NewSettingsService(store SettingsStore, settings model.SystemSettings, expTable model.ExpTable) *SettingsService {
	return &SettingsService{
		store:           store,
		defaultSettings: settings,
		defaultExpTable: expTable,
	}
}

func (s *SettingsService) GetSettings(ctx context.Context) (*model.SystemSettings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			defaults := s.defaultSettings
			return &defaults, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, settings *model.SystemSettings) error {
	if settings.QuestClearExp < 0 || settings.QuestClearGold < 0 || settings.MaxRewardCount < 0 {
		return invalid("settings must not be negative")
	}

	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}

	logger.Logger().Info("system settings updated",
		zap.Int64("quest_clear_exp", settings.QuestClearExp),
		zap.Int64("quest_clear_gold", settings.QuestClearGold),
		zap.Int("max_reward_count", settings.MaxRewardCount))
	return nil
}

func (s *SettingsService) GetExpTable(ctx context.Context) (model.ExpTable, error) {
	table, err := s.store.GetExpTable(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			defaults := make(model.ExpTable, len(s.defaultExpTable))
			for k, v := range s.defaultExpTable {
				defaults[k] = v
			}
			return defaults, nil
		}
		return nil, err
	}
	return table, nil
}

func (s *SettingsService) UpdateExpTable(ctx context.Context, table model.ExpTable) error {
	if len(table) == 0 {
		return invalid("exp table is empty")
	}
	for level, exp := range table {
		if level < 1 {
			return invalid("level %d is out of range", level)
		}
		if exp < 0 {
			return invalid("exp for level %d must not be negative", level)
		}
	}

	if err := s.store.SaveExpTable(ctx, table); err != nil {
		return err
	}

	logger.Logger().Info("exp table updated", zap.Int("levels", len(table)))
	return nil
}
