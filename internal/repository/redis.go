package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"dailyquest/internal/model"
	"dailyquest/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	settingsKey          = "dailyquest:settings"
	expTableKey          = "dailyquest:exp_table"
	refreshTokenPrefix   = "dailyquest:refresh_token:"
	questDocumentsPrefix = "dailyquest:quest_documents:"
	questVersionPrefix   = "dailyquest:quest_documents_version:"
)

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RedisStore keeps settings, refresh token ids and quest search documents.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Logger().Info("Connected to redis successfully")

	return &RedisStore{client: client}, nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) GetSettings(ctx context.Context) (*model.SystemSettings, error) {
	values, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	var settings model.SystemSettings
	if settings.QuestClearExp, err = strconv.ParseInt(values["questClearExp"], 10, 64); err != nil {
		return nil, errors.Wrap(err, "invalid questClearExp")
	}
	if settings.QuestClearGold, err = strconv.ParseInt(values["questClearGold"], 10, 64); err != nil {
		return nil, errors.Wrap(err, "invalid questClearGold")
	}
	if settings.MaxRewardCount, err = strconv.Atoi(values["maxRewardCount"]); err != nil {
		return nil, errors.Wrap(err, "invalid maxRewardCount")
	}

	return &settings, nil
}

func (s *RedisStore) SaveSettings(ctx context.Context, settings *model.SystemSettings) error {
	return s.client.HSet(ctx, settingsKey,
		"questClearExp", settings.QuestClearExp,
		"questClearGold", settings.QuestClearGold,
		"maxRewardCount", settings.MaxRewardCount,
	).Err()
}

func (s *RedisStore) GetExpTable(ctx context.Context) (model.ExpTable, error) {
	values, err := s.client.HGetAll(ctx, expTableKey).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	table := make(model.ExpTable, len(values))
	for k, v := range values {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid level %q", k)
		}
		exp, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exp for level %d", level)
		}
		table[level] = exp
	}

	return table, nil
}

// SaveExpTable replaces the whole table atomically.
func (s *RedisStore) SaveExpTable(ctx context.Context, table model.ExpTable) error {
	levels := make([]int, 0, len(table))
	for l := range table {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	fields := make([]interface{}, 0, len(table)*2)
	for _, l := range levels {
		fields = append(fields, strconv.Itoa(l), table[l])
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, expTableKey)
	if len(fields) > 0 {
		pipe.HSet(ctx, expTableKey, fields...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SaveRefreshToken(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return s.client.Set(ctx, refreshTokenPrefix+tokenID, userID, ttl).Err()
}

// ConsumeRefreshToken deletes the token id and returns the user it belonged
// to. A token id can be consumed only once.
func (s *RedisStore) ConsumeRefreshToken(ctx context.Context, tokenID string) (int64, error) {
	key := refreshTokenPrefix + tokenID

	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	userID, err := get.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return userID, nil
}

func (s *RedisStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, refreshTokenPrefix+tokenID).Err()
}

func questDocumentsKey(userID int64) string {
	return questDocumentsPrefix + strconv.FormatInt(userID, 10)
}

func questVersionKey(userID int64) string {
	return questVersionPrefix + strconv.FormatInt(userID, 10)
}

// SaveQuestDocument stores the document and bumps the user's document
// version in the same MULTI block.
func (s *RedisStore) SaveQuestDocument(ctx context.Context, doc *model.QuestDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode quest document: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, questDocumentsKey(doc.UserID), strconv.FormatInt(doc.ID, 10), data)
		pipe.Incr(ctx, questVersionKey(doc.UserID))
		return nil
	})
	return err
}

func (s *RedisStore) DeleteQuestDocument(ctx context.Context, userID, questID int64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, questDocumentsKey(userID), strconv.FormatInt(questID, 10))
		pipe.Incr(ctx, questVersionKey(userID))
		return nil
	})
	return err
}

// GetQuestDocumentsVersion returns the counter bumped by every document
// write of the user. A user without writes is at version 0.
func (s *RedisStore) GetQuestDocumentsVersion(ctx context.Context, userID int64) (int64, error) {
	version, err := s.client.Get(ctx, questVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

func (s *RedisStore) GetQuestDocuments(ctx context.Context, userID int64) ([]*model.QuestDocument, error) {
	values, err := s.client.HGetAll(ctx, questDocumentsKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]*model.QuestDocument, 0, len(values))
	for _, v := range values {
		var doc model.QuestDocument
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode quest document: %w", err)
		}
		docs = append(docs, &doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID > docs[j].ID })
	return docs, nil
}
