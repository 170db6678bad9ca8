package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"visitorpass/internal/domain"
)

type visitorRepository struct {
	DB querier
}

// NewVisitorRepository returns a domain.VisitorRepository implemented with Postgres.
func NewVisitorRepository(db querier) domain.VisitorRepository {
	return &visitorRepository{DB: db}
}

const visitorColumns = `id, name, email, phone_number, purpose_of_visit, host_id, status,
	entry_time, exit_time, created_by_guard_id, created_at, updated_at`

func (r *visitorRepository) Create(ctx context.Context, v *domain.Visitor) error {
	query := `
		INSERT INTO visitors (name, email, phone_number, purpose_of_visit, host_id, status, created_by_guard_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var guardID sql.NullString
	if v.CreatedByGuardID != nil {
		guardID = sql.NullString{String: *v.CreatedByGuardID, Valid: true}
	}
	err := r.DB.QueryRowContext(ctx, query,
		v.Name, v.Email, v.Phone, v.Purpose, v.HostID, string(v.Status), guardID, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
	return mapError(err)
}

func (r *visitorRepository) GetByID(ctx context.Context, id string) (*domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1`
	return scanVisitor(r.DB.QueryRowContext(ctx, query, id))
}

func (r *visitorRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1 FOR UPDATE`
	return scanVisitor(r.DB.QueryRowContext(ctx, query, id))
}

func (r *visitorRepository) FindActiveByContact(ctx context.Context, email, phone string) (*domain.Visitor, error) {
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE (lower(email) = lower($1) OR phone_number = $2)
		  AND status IN ('PENDING', 'APPROVED')
		LIMIT 1
	`
	return scanVisitor(r.DB.QueryRowContext(ctx, query, email, phone))
}

func (r *visitorRepository) UpdateStatus(ctx context.Context, v *domain.Visitor, from domain.VisitorStatus) error {
	query := `
		UPDATE visitors
		SET status = $1, entry_time = $2, exit_time = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.DB.ExecContext(ctx, query,
		string(v.Status), v.EntryTime, v.ExitTime, v.UpdatedAt, v.ID, string(from),
	)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: visitor %s is no longer %s", domain.ErrConflict, v.ID, from)
	}
	return nil
}

func (r *visitorRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM visitors WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *visitorRepository) List(ctx context.Context, f domain.VisitorFilter) ([]*domain.Visitor, error) {
	w := visitorWhere(f)
	order := "created_at DESC"
	if f.OrderByEntry {
		order = "entry_time DESC NULLS LAST"
	}
	query := `SELECT ` + visitorColumns + ` FROM visitors` + w.sql() + ` ORDER BY ` + order + `, id DESC`
	if f.Limit > 0 {
		query += " LIMIT " + w.placeholder(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + w.placeholder(f.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	visitors := make([]*domain.Visitor, 0)
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (r *visitorRepository) CountByStatus(ctx context.Context, f domain.VisitorFilter) (map[domain.VisitorStatus]int, error) {
	w := visitorWhere(f)
	query := `SELECT status, COUNT(*) FROM visitors` + w.sql() + ` GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	counts := make(map[domain.VisitorStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.VisitorStatus(status)] = n
	}
	return counts, rows.Err()
}

func visitorWhere(f domain.VisitorFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.HostID != "" {
		w.add("host_id = $%d", f.HostID)
	}
	if f.Status != "" {
		w.add("status = $%d", string(f.Status))
	}
	if f.CreatedByGuardID != "" {
		w.add("created_by_guard_id = $%d", f.CreatedByGuardID)
	}
	if f.CreatedFrom != nil {
		w.add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedBefore != nil {
		w.add("created_at < $%d", *f.CreatedBefore)
	}
	if f.CreatedThrough != nil {
		w.add("created_at <= $%d", *f.CreatedThrough)
	}
	if f.EntryFrom != nil {
		w.add("entry_time >= $%d", *f.EntryFrom)
	}
	if f.EntryTo != nil {
		w.add("entry_time < $%d", *f.EntryTo)
	}
	if f.ExitFrom != nil {
		w.add("exit_time >= $%d", *f.ExitFrom)
	}
	if f.ExitTo != nil {
		w.add("exit_time < $%d", *f.ExitTo)
	}
	return w
}

func scanVisitor(row rowScanner) (*domain.Visitor, error) {
	v := &domain.Visitor{}
	var status string
	var entry, exit sql.NullTime
	var guardID sql.NullString
	err := row.Scan(
		&v.ID, &v.Name, &v.Email, &v.Phone, &v.Purpose, &v.HostID, &status,
		&entry, &exit, &guardID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	v.Status = domain.VisitorStatus(status)
	v.EntryTime = nullTimePtr(entry)
	v.ExitTime = nullTimePtr(exit)
	v.CreatedByGuardID = nullStringPtr(guardID)
	return v, nil
}
