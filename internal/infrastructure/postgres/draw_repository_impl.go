package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lottosix/lottery-api/internal/domain/entity"
	"github.com/lottosix/lottery-api/internal/domain/repository"
)

const drawColumns = `id, user_id, numbers, been_played, matches_master, master_draw,
	lottery_round, created_at, updated_at`

type DrawRepository struct {
	pool *pgxpool.Pool
}

func NewDrawRepository(pool *pgxpool.Pool) *DrawRepository {
	return &DrawRepository{pool: pool}
}

func (r *DrawRepository) Create(d *entity.Draw) error {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO draws (user_id, numbers, been_played, matches_master, master_draw, lottery_round)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, d.UserID, d.Numbers, d.BeenPlayed, d.MatchesMaster, d.MasterDraw, d.LotteryRound)

	return row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DrawRepository) ActiveMasterDraw() (*entity.Draw, error) {
	return r.getOne(`
		SELECT ` + drawColumns + ` FROM draws
		WHERE master_draw AND NOT been_played
	`)
}

func (r *DrawRepository) LatestMasterDraw() (*entity.Draw, error) {
	return r.getOne(`
		SELECT ` + drawColumns + ` FROM draws
		WHERE master_draw
		ORDER BY lottery_round DESC
		LIMIT 1
	`)
}

// getOne returns (nil, nil) when no row matches. Callers must be able
// to tell "no master draw" apart from an infrastructure failure.
func (r *DrawRepository) getOne(query string, args ...any) (*entity.Draw, error) {
	ctx := context.Background()
	d := &entity.Draw{}

	row := r.pool.QueryRow(ctx, query, args...)
	if err := scanDraw(row, d); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *DrawRepository) ListUnplayedUserDraws() ([]*entity.Draw, error) {
	return r.list(`
		SELECT ` + drawColumns + ` FROM draws
		WHERE NOT master_draw AND NOT been_played
		ORDER BY created_at
	`)
}

func (r *DrawRepository) ListUserDraws(userID string, played bool) ([]*entity.Draw, error) {
	return r.list(`
		SELECT `+drawColumns+` FROM draws
		WHERE NOT master_draw AND user_id = $1 AND been_played = $2
		ORDER BY created_at
	`, userID, played)
}

func (r *DrawRepository) list(query string, args ...any) ([]*entity.Draw, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Draw
	for rows.Next() {
		d := &entity.Draw{}
		if err := scanDraw(rows, d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DrawRepository) Update(d *entity.Draw) error {
	ctx := context.Background()
	d.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE draws
		SET numbers = $1, been_played = $2, matches_master = $3, lottery_round = $4, updated_at = $5
		WHERE id = $6
	`, d.Numbers, d.BeenPlayed, d.MatchesMaster, d.LotteryRound, d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DrawRepository) Delete(id string) error {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `DELETE FROM draws WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DrawRepository) DeletePlayedUserDraws(userID string) (int64, error) {
	ctx := context.Background()
	res, err := r.pool.Exec(ctx, `
		DELETE FROM draws
		WHERE user_id = $1 AND been_played AND NOT master_draw
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanDraw(row pgx.Row, d *entity.Draw) error {
	return row.Scan(&d.ID, &d.UserID, &d.Numbers, &d.BeenPlayed, &d.MatchesMaster,
		&d.MasterDraw, &d.LotteryRound, &d.CreatedAt, &d.UpdatedAt)
}

var _ repository.DrawRepository = (*DrawRepository)(nil)
