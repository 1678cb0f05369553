package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SeasonSnapshotRepository struct {
	q      DBTX
	logger zerolog.Logger
}

func NewSeasonSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SeasonSnapshotRepository {
	return &SeasonSnapshotRepository{q: sqlDB, logger: logger}
}

func (r *SeasonSnapshotRepository) WithTx(tx *sql.Tx) *SeasonSnapshotRepository {
	return &SeasonSnapshotRepository{q: tx, logger: r.logger}
}

func (r *SeasonSnapshotRepository) Upsert(ctx context.Context, snap *domain.SeasonSnapshot) error {
	now := time.Now()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO season_snapshots (season_id, player_id, rating, win_count, loss_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (season_id, player_id) DO UPDATE SET
			rating = excluded.rating,
			win_count = excluded.win_count,
			loss_count = excluded.loss_count,
			updated_at = excluded.updated_at`,
		snap.SeasonID, snap.PlayerID, snap.Rating, snap.WinCount, snap.LossCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot for season %s player %s: %w",
			snap.SeasonID, snap.PlayerID, err)
	}
	return nil
}

func (r *SeasonSnapshotRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM season_snapshots`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete season snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SeasonSnapshotRepository) Get(ctx context.Context, seasonID, playerID string) (*domain.SeasonSnapshot, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT season_id, player_id, rating, win_count, loss_count, created_at, updated_at
		FROM season_snapshots WHERE season_id = ? AND player_id = ?`, seasonID, playerID)

	var s domain.SeasonSnapshot
	err := row.Scan(&s.SeasonID, &s.PlayerID, &s.Rating, &s.WinCount, &s.LossCount, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s/%s: %w", seasonID, playerID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListBySeason returns a season's final standings, best rating first.
func (r *SeasonSnapshotRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.SeasonSnapshot, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT season_id, player_id, rating, win_count, loss_count, created_at, updated_at
		FROM season_snapshots WHERE season_id = ?
		ORDER BY rating DESC, win_count DESC, player_id ASC`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.SeasonSnapshot
	for rows.Next() {
		var s domain.SeasonSnapshot
		err := rows.Scan(&s.SeasonID, &s.PlayerID, &s.Rating, &s.WinCount, &s.LossCount, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// Count is used by the replay to report how many rows it rebuilt.
func (r *SeasonSnapshotRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM season_snapshots`).Scan(&n)
	return n, err
}
