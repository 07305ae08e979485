package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ideas-feedback/internal/config"
	"ideas-feedback/internal/database"
)

// CloseFunc releases whatever Open acquired.
type CloseFunc func(ctx context.Context) error

// Open builds the store named by cfg.StoreDriver, connects it and makes sure
// its indexes or schema exist.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (IdeaStore, CloseFunc, error) {
	log = log.With().Str("store", cfg.StoreDriver).Logger()

	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		log.Warn().Msg("using in-memory idea store, data is lost on restart")
		return NewMemoryStore(), func(context.Context) error { return nil }, nil

	case config.DriverMongo:
		if err := database.Connect(cfg.MongoURI, cfg.DBName); err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := NewMongoIdeaRepo()

		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(idxCtx); err != nil {
			log.Warn().Err(err).Msg("failed to create idea indexes")
		}
		log.Info().Str("db", cfg.DBName).Msg("mongo connected")
		return repo, database.Disconnect, nil

	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func(context.Context) error { pool.Close(); return nil }, nil

	case config.DriverBadger:
		db, err := database.OpenBadger(database.BadgerConfig{Path: cfg.BadgerPath, Logger: &log})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.BadgerPath).Msg("badger opened")
		return NewBadgerStore(db), func(context.Context) error { return db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
