package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"visitorpass/internal/domain"
)

const defaultTxAttempts = 3

// Store is the Postgres implementation of domain.Store.
type Store struct {
	db          *sql.DB
	maxAttempts int
}

// NewStore returns a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, maxAttempts: defaultTxAttempts}
}

func (s *Store) Users() domain.UserRepository                 { return NewUserRepository(s.db) }
func (s *Store) Visitors() domain.VisitorRepository           { return NewVisitorRepository(s.db) }
func (s *Store) Passes() domain.PassRepository                { return NewPassRepository(s.db) }
func (s *Store) Notifications() domain.NotificationRepository { return NewNotificationRepository(s.db) }

// WithinTx runs fn in a serializable transaction, retrying the whole unit on serialization
// failures and deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: transaction retries exhausted: %v", domain.ErrConflict, err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, txRepositories{q: tx}); err != nil {
		return err
	}
	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepositories struct {
	q querier
}

func (r txRepositories) Users() domain.UserRepository       { return NewUserRepository(r.q) }
func (r txRepositories) Visitors() domain.VisitorRepository { return NewVisitorRepository(r.q) }
func (r txRepositories) Passes() domain.PassRepository      { return NewPassRepository(r.q) }
func (r txRepositories) Notifications() domain.NotificationRepository {
	return NewNotificationRepository(r.q)
}
