package store

import (
	"context"
	"errors"

	"push-service/internal/db"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a row is absent. Callers branch on it with
// errors.Is; every other error is treated as transient.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *db.PostgresDB
	logger *zap.Logger
}

func New(db *db.PostgresDB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
