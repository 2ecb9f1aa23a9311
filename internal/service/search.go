package service

import (
	"context"
	"fmt"
	"strings"

	"dailyquest/internal/model"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
)

const defaultSearchCacheSize = 1024

// questDocuments implements fuzzy.Source over the searchable text of quests.
type questDocuments []*model.QuestDocument

func (d questDocuments) Len() int {
	return len(d)
}

func (d questDocuments) String(i int) string {
	return searchableText(d[i])
}

func searchableText(doc *model.QuestDocument) string {
	parts := make([]string, 0, 2+len(doc.DetailTitles))
	parts = append(parts, doc.Title, doc.Description)
	parts = append(parts, doc.DetailTitles...)
	return strings.ToLower(strings.Join(parts, " "))
}

// cachedDocuments is a decoded document set and the store version it was
// read at.
type cachedDocuments struct {
	version int64
	docs    []*model.QuestDocument
}

// SearchService keeps one document per quest in the store and ranks keyword
// matches with fuzzy matching. Decoded document sets are cached per user and
// reused while the store version of the user is unchanged, so writes made by
// other instances are seen on the next search.
type SearchService struct {
	store DocumentStore
	cache *lru.Cache
}

func NewSearchService(store DocumentStore, cacheSize int) (*SearchService, error) {
	if cacheSize <= 0 {
		cacheSize = defaultSearchCacheSize
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create search cache: %w", err)
	}

	return &SearchService{
		store: store,
		cache: cache,
	}, nil
}

// Index upserts the quest document. Deleted quests are dropped from the index.
func (s *SearchService) Index(ctx context.Context, quest *model.Quest) error {
	defer s.cache.Remove(quest.UserID)

	if quest.State == model.QuestStateDelete {
		return s.store.DeleteQuestDocument(ctx, quest.UserID, quest.ID)
	}
	return s.store.SaveQuestDocument(ctx, model.NewQuestDocument(quest))
}

// Search returns the ids of the user's quests matching keyword, best match
// first.
func (s *SearchService) Search(ctx context.Context, userID int64, keyword string, state *model.QuestState) ([]int64, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil, invalid("keyword is empty")
	}

	docs, err := s.documents(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates := make(questDocuments, 0, len(docs))
	for _, doc := range docs {
		if state != nil && doc.State != *state {
			continue
		}
		candidates = append(candidates, doc)
	}

	matches := fuzzy.FindFrom(keyword, candidates)
	ids := make([]int64, len(matches))
	for i, match := range matches {
		ids[i] = candidates[match.Index].ID
	}
	return ids, nil
}

func (s *SearchService) documents(ctx context.Context, userID int64) ([]*model.QuestDocument, error) {
	version, err := s.store.GetQuestDocumentsVersion(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest documents version: %w", err)
	}

	if cached, ok := s.cache.Get(userID); ok {
		if entry := cached.(cachedDocuments); entry.version == version {
			return entry.docs, nil
		}
	}

	docs, err := s.store.GetQuestDocuments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quest documents: %w", err)
	}

	s.cache.Add(userID, cachedDocuments{version: version, docs: docs})
	return docs, nil
}
