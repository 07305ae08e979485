// Package digest generates the day's ideas, signs a feedback link for each
// and mails them out.
package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ideas-feedback/internal/generator"
	"ideas-feedback/internal/mailer"
	"ideas-feedback/internal/metrics"
	"ideas-feedback/internal/models"
	"ideas-feedback/internal/repository"
	"ideas-feedback/internal/token"
)

const sendConcurrency = 4

type Config struct {
	Store     repository.IdeaStore
	Generator generator.Generator
	Catalog   *generator.Catalog
	Codec     *token.Codec
	Mailer    mailer.Mailer
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	// BaseURL prefixes every feedback link, without a trailing slash.
	BaseURL string
	// TokenTTL of zero issues links that never expire.
	TokenTTL time.Duration
	Now      func() time.Time
}

type Digest struct {
	cfg Config
}

func New(cfg Config) *Digest {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Digest{cfg: cfg}
}

// Result reports what one run produced.
type Result struct {
	Ideas  []models.Idea
	Links  map[string]string
	Sent   int
	Failed map[string]error
}

// GenerateIdea writes one new idea for category, stores it and returns it.
func (d *Digest) GenerateIdea(ctx context.Context, category string) (*models.Idea, error) {
	cat, ok := d.cfg.Catalog.Get(category)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	previous, err := d.cfg.Store.ListRecentIdeas(ctx, cat.Key, generator.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", cat.Key, err)
	}

	text, err := d.cfg.Generator.Generate(ctx, cat, previous)
	if err != nil {
		return nil, err
	}

	idea := &models.Idea{
		ID:        cat.Key + "_" + uuid.NewString(),
		Category:  cat.Key,
		Content:   text,
		CreatedAt: d.cfg.Now().UTC(),
	}
	if err := d.cfg.Store.CreateIdea(ctx, idea); err != nil {
		return nil, fmt.Errorf("store %s idea: %w", cat.Key, err)
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.IdeasGenerated.WithLabelValues(cat.Key).Inc()
	}
	d.cfg.Logger.Info().Str("idea_id", idea.ID).Str("category", cat.Key).Msg("idea generated and stored")
	return idea, nil
}

// Link signs a feedback URL for ideaID. ttl <= 0 falls back to the
// configured TokenTTL.
func (d *Digest) Link(ideaID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = d.cfg.TokenTTL
	}
	tok, err := d.cfg.Codec.IssueWithTTL(ideaID, ttl)
	if err != nil {
		return "", err
	}
	return d.cfg.BaseURL + "/feedback/" + tok, nil
}

// LinkExisting signs a feedback URL for an idea already in the store.
func (d *Digest) LinkExisting(ctx context.Context, ideaID string, ttl time.Duration) (string, error) {
	if _, err := d.cfg.Store.GetIdea(ctx, ideaID); err != nil {
		return "", fmt.Errorf("look up %s: %w", ideaID, err)
	}
	return d.Link(ideaID, ttl)
}

// Run generates one idea per category in catalog order and emails all of
// them to every recipient. Generation errors abort the run before anything
// is sent. Delivery errors are collected per recipient and returned joined
// after every send has finished.
func (d *Digest) Run(ctx context.Context, recipients []string) (*Result, error) {
	if len(recipients) == 0 {
		return nil, errors.New("no recipients")
	}

	res := &Result{Links: make(map[string]string), Failed: make(map[string]error)}
	var items []Item
	for _, cat := range d.cfg.Catalog.Categories() {
		idea, err := d.GenerateIdea(ctx, cat.Key)
		if err != nil {
			return nil, err
		}
		link, err := d.Link(idea.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("issue link for %s: %w", idea.ID, err)
		}
		res.Ideas = append(res.Ideas, *idea)
		res.Links[idea.ID] = link
		items = append(items, Item{Heading: cat.Heading, Color: cat.Color, Content: idea.Content, Link: link})
	}

	date := d.cfg.Now().Format("02.01.2006")
	html, text, err := render(date, items)
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}
	subject := "Your daily ideas - " + date

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(sendConcurrency)
	for _, to := range recipients {
		g.Go(func() error {
			id, err := d.cfg.Mailer.Send(ctx, mailer.Message{
				To:      []string{to},
				Subject: subject,
				HTML:    html,
				Text:    text,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[to] = err
				d.countEmail("failed")
				d.cfg.Logger.Error().Err(err).Msg("digest email failed")
				return nil
			}
			res.Sent++
			d.countEmail("sent")
			d.cfg.Logger.Info().Str("email_id", id).Msg("digest email sent")
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Failed) > 0 {
		errs := make([]error, 0, len(res.Failed))
		for to, err := range res.Failed {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
		}
		return res, errors.Join(errs...)
	}
	return res, nil
}

func (d *Digest) countEmail(result string) {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.EmailsSent.WithLabelValues(result).Inc()
	}
}
