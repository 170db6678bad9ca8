package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"visitorpass/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name     string
		mock     func(mock sqlmock.Sqlmock)
		fn       func(calls *int) func(ctx context.Context, tx domain.Repositories) error
		wantErr  error
		wantCall int
	}{
		{
			name: "commits on success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE passes`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			fn: func(calls *int) func(ctx context.Context, tx domain.Repositories) error {
				return func(ctx context.Context, tx domain.Repositories) error {
					*calls++
					return tx.Passes().MarkProcessed(ctx, "555", time.Now(), "7")
				}
			},
			wantCall: 1,
		},
		{
			name: "rolls back on error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn: func(calls *int) func(ctx context.Context, tx domain.Repositories) error {
				return func(ctx context.Context, tx domain.Repositories) error {
					*calls++
					return boom
				}
			},
			wantErr:  boom,
			wantCall: 1,
		},
		{
			name: "retries serialization failure",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE passes`).WillReturnError(&pq.Error{Code: "40001"})
				mock.ExpectRollback()
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE passes`).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			fn: func(calls *int) func(ctx context.Context, tx domain.Repositories) error {
				return func(ctx context.Context, tx domain.Repositories) error {
					*calls++
					return tx.Passes().MarkProcessed(ctx, "555", time.Now(), "7")
				}
			},
			wantCall: 2,
		},
		{
			name: "gives up after max attempts",
			mock: func(mock sqlmock.Sqlmock) {
				for i := 0; i < defaultTxAttempts; i++ {
					mock.ExpectBegin()
					mock.ExpectRollback()
				}
			},
			fn: func(calls *int) func(ctx context.Context, tx domain.Repositories) error {
				return func(ctx context.Context, tx domain.Repositories) error {
					*calls++
					return &pq.Error{Code: "40P01"}
				}
			},
			wantErr:  domain.ErrConflict,
			wantCall: defaultTxAttempts,
		},
		{
			name: "retryable commit failure",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			fn: func(calls *int) func(ctx context.Context, tx domain.Repositories) error {
				return func(ctx context.Context, tx domain.Repositories) error {
					*calls++
					return nil
				}
			},
			wantCall: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			calls := 0
			err = NewStore(db).WithinTx(ctx, tt.fn(&calls))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCall, calls)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_WithinTx_RollsBackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewStore(db).WithinTx(context.Background(), func(ctx context.Context, tx domain.Repositories) error {
			panic("mid-transaction")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
