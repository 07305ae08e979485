package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ideas-feedback/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps ideas in one table and their feedback entries in
// another, keyed by (idea_id, fingerprint).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateIdea(ctx context.Context, idea *models.Idea) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ideas (id, category, content, created_at)
		VALUES ($1, $2, $3, $4)`,
		idea.ID, idea.Category, idea.Content, idea.CreatedAt)
	return err
}

func (s *PostgresStore) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	var idea models.Idea
	err := s.pool.QueryRow(ctx, `
		SELECT id, category, content, created_at FROM ideas WHERE id = $1`, id).
		Scan(&idea.ID, &idea.Category, &idea.Content, &idea.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdeaNotFound
	}
	if err != nil {
		return nil, err
	}

	idea.Feedbacks, err = s.entries(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	return &idea, nil
}

func (s *PostgresStore) ListRecentIdeas(ctx context.Context, category string, limit int) ([]models.Idea, error) {
	query := `
		SELECT id, category, content, created_at FROM ideas
		WHERE category = $1
		ORDER BY created_at DESC`
	args := []any{category}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		var i models.Idea
		if err := rows.Scan(&i.ID, &i.Category, &i.Content, &i.CreatedAt); err != nil {
			return nil, err
		}
		ideas = append(ideas, i)
	}
	return ideas, rows.Err()
}

func (s *PostgresStore) LoadFeedbackEntries(ctx context.Context, ideaID string) ([]models.FeedbackEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ideas WHERE id = $1)`, ideaID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrIdeaNotFound
	}
	return s.entries(ctx, s.pool, ideaID)
}

// SaveFeedbackEntries replaces the idea's rows in one transaction. The idea
// row is locked so concurrent savers from other processes queue up.
func (s *PostgresStore) SaveFeedbackEntries(ctx context.Context, ideaID string, entries []models.FeedbackEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM ideas WHERE id = $1 FOR UPDATE`, ideaID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrIdeaNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM feedback_entries WHERE idea_id = $1`, ideaID); err != nil {
		return err
	}

	if len(entries) > 0 {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`
				INSERT INTO feedback_entries
					(idea_id, fingerprint, rating, comment, implemented, submitted_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ideaID, e.Fingerprint, e.Rating, e.Comment, e.Implemented, e.SubmittedAt, e.UpdatedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range entries {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) entries(ctx context.Context, q querier, ideaID string) ([]models.FeedbackEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT fingerprint, rating, comment, implemented, submitted_at, updated_at
		FROM feedback_entries
		WHERE idea_id = $1
		ORDER BY submitted_at, fingerprint`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.FeedbackEntry{}
	for rows.Next() {
		var e models.FeedbackEntry
		if err := rows.Scan(&e.Fingerprint, &e.Rating, &e.Comment, &e.Implemented, &e.SubmittedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
