package repository

import (
	"context"
	"errors"

	"ideas-feedback/internal/models"
)

// ErrIdeaNotFound is returned by every store for an unknown idea id.
var ErrIdeaNotFound = errors.New("idea not found")

// IdeaStore persists generated ideas and the feedback entries attached to
// them. SaveFeedbackEntries replaces the whole entry set; callers serialise
// writers per idea.
type IdeaStore interface {
	CreateIdea(ctx context.Context, idea *models.Idea) error
	GetIdea(ctx context.Context, id string) (*models.Idea, error)
	// ListRecentIdeas returns up to limit ideas of category, newest first.
	ListRecentIdeas(ctx context.Context, category string, limit int) ([]models.Idea, error)
	LoadFeedbackEntries(ctx context.Context, ideaID string) ([]models.FeedbackEntry, error)
	SaveFeedbackEntries(ctx context.Context, ideaID string, entries []models.FeedbackEntry) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func cloneEntries(in []models.FeedbackEntry) []models.FeedbackEntry {
	if in == nil {
		return []models.FeedbackEntry{}
	}
	out := make([]models.FeedbackEntry, len(in))
	for i, e := range in {
		if e.Rating != nil {
			r := *e.Rating
			e.Rating = &r
		}
		out[i] = e
	}
	return out
}
