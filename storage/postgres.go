package storage

import (
	"context"
	"errors"
	"fmt"

	"diceroom/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrUnexpectedDatabase, err)
	}
	return &PostgresRepo{pool: pool}, nil
}

func (repo *PostgresRepo) Close() {
	repo.pool.Close()
}

func (repo *PostgresRepo) RecordRoll(ctx context.Context, rec domain.RollRecord) error {
	_, err := repo.pool.Exec(ctx,
		`INSERT INTO roll_journal(room_id, client_id, won, lost, accepted, recorded_at)
		 VALUES($1, $2, $3, $4, $5, $6)`,
		rec.RoomID, rec.ClientID, rec.Won, rec.Lost, rec.Accepted, rec.RecordedAt,
	)
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

// ListRolls returns the most recent rolls of a room, newest first.
func (repo *PostgresRepo) ListRolls(ctx context.Context, roomID string, limit int) ([]domain.RollRecord, error) {
	rows, err := repo.pool.Query(ctx,
		`SELECT room_id, client_id, won, lost, accepted, recorded_at
		 FROM roll_journal
		 WHERE room_id = $1
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	rolls := make([]domain.RollRecord, 0, limit)
	for rows.Next() {
		var rec domain.RollRecord
		if err := rows.Scan(&rec.RoomID, &rec.ClientID, &rec.Won, &rec.Lost, &rec.Accepted, &rec.RecordedAt); err != nil {
			return nil, wrapErr(err)
		}
		rolls = append(rolls, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return rolls, nil
}

func wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUnexpectedDatabase, err)
}
