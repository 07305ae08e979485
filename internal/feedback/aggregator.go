// Package feedback merges anonymous, link-authorised submissions about an
// idea into that idea's feedback entry set and derives the aggregate shown
// back to submitters.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"ideas-feedback/internal/models"
	"ideas-feedback/internal/repository"
)

// ErrPersistence wraps failures reported by the store. The caller decides
// whether to retry.
var ErrPersistence = errors.New("feedback store failure")

const invalidateTimeout = 2 * time.Second

// Store is the slice of the idea store the aggregator needs. Implementations
// return repository.ErrIdeaNotFound for unknown ideas.
type Store interface {
	LoadFeedbackEntries(ctx context.Context, ideaID string) ([]models.FeedbackEntry, error)
	SaveFeedbackEntries(ctx context.Context, ideaID string, entries []models.FeedbackEntry) error
}

// AggregateCache is an optional read-through cache for GetAggregate. Get
// returns (nil, nil) on a miss.
type AggregateCache interface {
	GetAggregate(ctx context.Context, ideaID string) (*models.Aggregate, error)
	SetAggregate(ctx context.Context, ideaID string, agg models.Aggregate) error
	InvalidateAggregate(ctx context.Context, ideaID string) error
}

// Submission is one verified visit to a feedback link. Nil fields were not
// supplied and leave an existing entry's value untouched.
type Submission struct {
	IdeaID      string
	Fingerprint string
	Rating      *int
	Comment     *string
	Implemented *bool
}

// Result is what Submit reports back to the mediator.
type Result struct {
	Aggregate models.Aggregate
	Entry     models.FeedbackEntry
	// Resubmission is true when this fingerprint already had an entry for
	// the idea, which was overwritten rather than appended.
	Resubmission bool
}

// Config tunes an Aggregator.
type Config struct {
	CommentMaxLength int
	Cache            AggregateCache
	Logger           zerolog.Logger
	Now              func() time.Time
}

// Aggregator serialises writes per idea and recomputes aggregates.
type Aggregator struct {
	store      Store
	cache      AggregateCache
	locks      *ideaLocks
	validate   *validator.Validate
	commentMax int
	log        zerolog.Logger
	now        func() time.Time
}

func NewAggregator(store Store, cfg Config) *Aggregator {
	if cfg.CommentMaxLength <= 0 {
		cfg.CommentMaxLength = DefaultCommentMaxLength
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{
		store:      store,
		cache:      cfg.Cache,
		locks:      newIdeaLocks(),
		validate:   newValidator(),
		commentMax: cfg.CommentMaxLength,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
}

// Submit validates s, merges it into the idea's entries under the idea's
// lock and persists the result.
func (a *Aggregator) Submit(ctx context.Context, s Submission) (*Result, error) {
	if err := a.normalize(&s); err != nil {
		return nil, err
	}

	unlock := a.locks.lock(s.IdeaID)
	defer unlock()

	res, err := a.merge(ctx, s)
	if err != nil {
		return nil, err
	}

	// Invalidate while still holding the lock so a concurrent cache fill in
	// GetAggregate cannot write back the pre-submission aggregate.
	a.invalidate(ctx, s.IdeaID)
	return res, nil
}

// invalidate drops the cached aggregate once the save has landed. It outlives
// a cancelled request context, since the entries have already changed.
func (a *Aggregator) invalidate(ctx context.Context, ideaID string) {
	if a.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	if err := a.cache.InvalidateAggregate(ctx, ideaID); err != nil {
		a.log.Warn().Err(err).Str("idea_id", ideaID).Msg("aggregate cache invalidate failed")
	}
}

// merge is the per-idea critical section: load, modify, save.
func (a *Aggregator) merge(ctx context.Context, s Submission) (*Result, error) {
	entries, err := a.store.LoadFeedbackEntries(ctx, s.IdeaID)
	if err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, s.IdeaID, err)
	}

	now := a.now().UTC()
	idx := -1
	for i := range entries {
		if entries[i].Fingerprint == s.Fingerprint {
			idx = i
			break
		}
	}

	existed := idx >= 0
	if existed {
		apply(&entries[idx], s)
		entries[idx].UpdatedAt = now
	} else {
		e := models.FeedbackEntry{
			Fingerprint: s.Fingerprint,
			SubmittedAt: now,
			UpdatedAt:   now,
		}
		apply(&e, s)
		entries = append(entries, e)
		idx = len(entries) - 1
	}

	if err := a.store.SaveFeedbackEntries(ctx, s.IdeaID, entries); err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: save %s: %w", ErrPersistence, s.IdeaID, err)
	}

	return &Result{
		Aggregate:    models.ComputeAggregate(entries),
		Entry:        entries[idx],
		Resubmission: existed,
	}, nil
}

func apply(e *models.FeedbackEntry, s Submission) {
	if s.Rating != nil {
		r := *s.Rating
		e.Rating = &r
	}
	if s.Comment != nil {
		e.Comment = *s.Comment
	}
	if s.Implemented != nil {
		e.Implemented = *s.Implemented
	}
}

// GetAggregate recomputes the aggregate for ideaID without mutating it. With
// a cache configured, a miss is filled under the idea's lock.
func (a *Aggregator) GetAggregate(ctx context.Context, ideaID string) (models.Aggregate, error) {
	if a.cache != nil {
		cached, err := a.cache.GetAggregate(ctx, ideaID)
		if err != nil {
			a.log.Warn().Err(err).Str("idea_id", ideaID).Msg("aggregate cache read failed")
		} else if cached != nil {
			return *cached, nil
		}
	}

	if a.cache != nil {
		unlock := a.locks.lock(ideaID)
		defer unlock()
	}

	entries, err := a.store.LoadFeedbackEntries(ctx, ideaID)
	if err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			return models.Aggregate{}, err
		}
		return models.Aggregate{}, fmt.Errorf("%w: load %s: %w", ErrPersistence, ideaID, err)
	}

	agg := models.ComputeAggregate(entries)
	if a.cache != nil {
		if err := a.cache.SetAggregate(ctx, ideaID, agg); err != nil {
			a.log.Warn().Err(err).Str("idea_id", ideaID).Msg("aggregate cache write failed")
		}
	}
	return agg, nil
}
