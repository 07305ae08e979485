package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ideas-feedback/internal/models"
)

// MemoryStore keeps ideas in process memory. It backs tests and local runs;
// everything is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	ideas map[string]*models.Idea
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ideas: make(map[string]*models.Idea)}
}

func (s *MemoryStore) CreateIdea(_ context.Context, idea *models.Idea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[idea.ID]; ok {
		return fmt.Errorf("idea %s already exists", idea.ID)
	}
	stored := *idea
	stored.Feedbacks = cloneEntries(idea.Feedbacks)
	s.ideas[idea.ID] = &stored
	return nil
}

func (s *MemoryStore) GetIdea(_ context.Context, id string) (*models.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idea, ok := s.ideas[id]
	if !ok {
		return nil, ErrIdeaNotFound
	}
	out := *idea
	out.Feedbacks = cloneEntries(idea.Feedbacks)
	return &out, nil
}

func (s *MemoryStore) ListRecentIdeas(_ context.Context, category string, limit int) ([]models.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Idea
	for _, idea := range s.ideas {
		if idea.Category == category {
			c := *idea
			c.Feedbacks = cloneEntries(idea.Feedbacks)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LoadFeedbackEntries(_ context.Context, ideaID string) ([]models.FeedbackEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idea, ok := s.ideas[ideaID]
	if !ok {
		return nil, ErrIdeaNotFound
	}
	return cloneEntries(idea.Feedbacks), nil
}

func (s *MemoryStore) SaveFeedbackEntries(_ context.Context, ideaID string, entries []models.FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, ok := s.ideas[ideaID]
	if !ok {
		return ErrIdeaNotFound
	}
	idea.Feedbacks = cloneEntries(entries)
	return nil
}

// Len reports how many ideas are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ideas)
}
