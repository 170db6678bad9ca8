package postgres

import (
	"context"
	"database/sql"
	"time"

	"visitorpass/internal/domain"
)

type passRepository struct {
	DB querier
}

// NewPassRepository returns a domain.PassRepository implemented with Postgres.
// Reads join visitors so HostID and VisitorName are always populated.
func NewPassRepository(db querier) domain.PassRepository {
	return &passRepository{DB: db}
}

const passSelect = `
	SELECT p.id, p.visitor_id, p.qr_code_data, p.qr_code_url, p.expiry_time,
	       p.approved_at, p.approved_by, p.created_at, v.host_id, v.name
	FROM passes p
	JOIN visitors v ON v.id = p.visitor_id`

func (r *passRepository) Create(ctx context.Context, p *domain.Pass) error {
	query := `
		INSERT INTO passes (visitor_id, qr_code_data, expiry_time, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, p.VisitorID, p.Token, p.ExpiresAt, p.CreatedAt).Scan(&p.ID)
	return mapError(err)
}

func (r *passRepository) GetByID(ctx context.Context, id string) (*domain.Pass, error) {
	return scanPass(r.DB.QueryRowContext(ctx, passSelect+` WHERE p.id = $1`, id))
}

func (r *passRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Pass, error) {
	return scanPass(r.DB.QueryRowContext(ctx, passSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
}

func (r *passRepository) GetByToken(ctx context.Context, token string) (*domain.Pass, error) {
	return scanPass(r.DB.QueryRowContext(ctx, passSelect+` WHERE p.qr_code_data = $1`, token))
}

func (r *passRepository) FindOutstanding(ctx context.Context, visitorID string, now time.Time) (*domain.Pass, error) {
	query := passSelect + `
	WHERE p.visitor_id = $1 AND p.approved_at IS NULL AND p.expiry_time > $2
	ORDER BY p.created_at DESC
	LIMIT 1`
	return scanPass(r.DB.QueryRowContext(ctx, query, visitorID, now))
}

func (r *passRepository) SetQRCodeURL(ctx context.Context, id, url string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE passes SET qr_code_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *passRepository) MarkProcessed(ctx context.Context, id string, at time.Time, by string) error {
	query := `
		UPDATE passes
		SET approved_at = $1, approved_by = $2
		WHERE id = $3 AND approved_at IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, at, by, id)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *passRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM passes WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *passRepository) DeleteByVisitorID(ctx context.Context, visitorID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM passes WHERE visitor_id = $1`, visitorID)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

func (r *passRepository) List(ctx context.Context, f domain.PassFilter) ([]*domain.Pass, error) {
	w := &whereBuilder{}
	if f.HostID != "" {
		w.add("v.host_id = $%d", f.HostID)
	}
	if f.VisitorID != "" {
		w.add("p.visitor_id = $%d", f.VisitorID)
	}
	if f.ApprovedBy != "" {
		w.add("p.approved_by = $%d", f.ApprovedBy)
	}
	if f.CreatedFrom != nil {
		w.add("p.created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedBefore != nil {
		w.add("p.created_at < $%d", *f.CreatedBefore)
	}
	if f.CreatedThrough != nil {
		w.add("p.created_at <= $%d", *f.CreatedThrough)
	}
	order := ` ORDER BY p.created_at DESC, p.id DESC`
	if f.ApprovedBy != "" {
		order = ` ORDER BY p.approved_at DESC, p.id DESC`
	}

	rows, err := r.DB.QueryContext(ctx, passSelect+w.sql()+order, w.args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	passes := make([]*domain.Pass, 0)
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

func scanPass(row rowScanner) (*domain.Pass, error) {
	p := &domain.Pass{}
	var qrURL, approvedBy sql.NullString
	var approvedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.VisitorID, &p.Token, &qrURL, &p.ExpiresAt,
		&approvedAt, &approvedBy, &p.CreatedAt, &p.HostID, &p.VisitorName,
	)
	if err != nil {
		return nil, mapError(err)
	}
	p.QRCodeURL = nullStringPtr(qrURL)
	p.ApprovedAt = nullTimePtr(approvedAt)
	p.ApprovedBy = nullStringPtr(approvedBy)
	return p, nil
}
