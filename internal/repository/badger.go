package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"ideas-feedback/internal/models"
)

const (
	ideaPrefix     = "idea:"
	categoryPrefix = "cat:"
	// conflictRetries bounds retries of an optimistic transaction that lost
	// a race with another writer on the same key.
	conflictRetries = 3
)

// BadgerStore keeps each idea, feedback included, as one JSON value under
// idea:<id>. cat:<category>:<created-nanos>:<id> keys index ideas by
// recency so listing never decodes unrelated categories.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func ideaKey(id string) []byte { return []byte(ideaPrefix + id) }

func categoryIndexPrefix(category string) []byte {
	return []byte(categoryPrefix + category + ":")
}

func categoryIndexKey(idea *models.Idea) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", categoryPrefix, idea.Category, idea.CreatedAt.UnixNano(), idea.ID))
}

func (s *BadgerStore) CreateIdea(_ context.Context, idea *models.Idea) error {
	stored := *idea
	if stored.Feedbacks == nil {
		stored.Feedbacks = []models.FeedbackEntry{}
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal idea: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(ideaKey(idea.ID)); err == nil {
			return fmt.Errorf("idea %s already exists", idea.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(ideaKey(idea.ID), data); err != nil {
			return err
		}
		return txn.Set(categoryIndexKey(idea), nil)
	})
}

func (s *BadgerStore) GetIdea(_ context.Context, id string) (*models.Idea, error) {
	var idea *models.Idea
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		idea, err = readIdea(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return idea, nil
}

func (s *BadgerStore) ListRecentIdeas(_ context.Context, category string, limit int) ([]models.Idea, error) {
	prefix := categoryIndexPrefix(category)
	var ideas []models.Idea

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key not greater than the seek
		// key, so seek just past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ideas) >= limit {
				break
			}
			key := it.Item().KeyCopy(nil)
			// <nanos:20>:<id>
			rest := key[len(prefix):]
			if len(rest) < 22 {
				continue
			}
			idea, err := readIdea(txn, string(rest[21:]))
			if errors.Is(err, ErrIdeaNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			idea.Feedbacks = nil
			ideas = append(ideas, *idea)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ideas, nil
}

func (s *BadgerStore) LoadFeedbackEntries(ctx context.Context, ideaID string) ([]models.FeedbackEntry, error) {
	idea, err := s.GetIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.Feedbacks == nil {
		return []models.FeedbackEntry{}, nil
	}
	return idea.Feedbacks, nil
}

func (s *BadgerStore) SaveFeedbackEntries(_ context.Context, ideaID string, entries []models.FeedbackEntry) error {
	if entries == nil {
		entries = []models.FeedbackEntry{}
	}

	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			idea, err := readIdea(txn, ideaID)
			if err != nil {
				return err
			}
			idea.Feedbacks = entries
			data, err := json.Marshal(idea)
			if err != nil {
				return fmt.Errorf("marshal idea: %w", err)
			}
			return txn.Set(ideaKey(ideaID), data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func readIdea(txn *badger.Txn, id string) (*models.Idea, error) {
	item, err := txn.Get(ideaKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrIdeaNotFound
	}
	if err != nil {
		return nil, err
	}

	var idea models.Idea
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &idea)
	}); err != nil {
		return nil, fmt.Errorf("decode idea %s: %w", id, err)
	}
	return &idea, nil
}
