package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	"github.com/lottosix/lottery-api/internal/domain/repository"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(e *entity.AuditEntry) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, email, role, action, remote_ip, detail)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.UserID, e.Email, e.Role, e.Action, e.RemoteIP, e.Detail)

	return row.Scan(&e.ID, &e.CreatedAt)
}

func (r *AuditRepository) Latest(n int) ([]*entity.AuditEntry, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(user_id::text, ''), email, role, action, remote_ip, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.AuditEntry
	for rows.Next() {
		e := &entity.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Email, &e.Role, &e.Action,
			&e.RemoteIP, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
