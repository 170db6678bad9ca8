package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"visitorpass/internal/domain"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories work in and out of a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Open connects to Postgres with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
)

// mapError converts driver errors into domain errors. Unknown errors pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var perr *pq.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, perr.Constraint)
		case codeForeignKeyViolation:
			return domain.NewValidationError("", "referenced record does not exist")
		case codeInvalidText:
			// a malformed id can never match a row
			return domain.ErrNotFound
		}
	}
	return err
}

// isRetryable reports whether err is a serialization failure or deadlock that warrants rerunning the transaction.
func isRetryable(err error) bool {
	var perr *pq.Error
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Code == codeSerializationFail || perr.Code == codeDeadlockDetected
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// whereBuilder accumulates AND-ed conditions with positional placeholders.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a condition; format must contain exactly one %d for the placeholder index.
func (w *whereBuilder) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) placeholder(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	out := " WHERE " + w.clauses[0]
	for _, c := range w.clauses[1:] {
		out += " AND " + c
	}
	return out
}
