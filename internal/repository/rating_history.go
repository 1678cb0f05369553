package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RatingHistoryRepository struct {
	q      DBTX
	logger zerolog.Logger
}

func NewRatingHistoryRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingHistoryRepository {
	return &RatingHistoryRepository{q: sqlDB, logger: logger}
}

func (r *RatingHistoryRepository) WithTx(tx *sql.Tx) *RatingHistoryRepository {
	return &RatingHistoryRepository{q: tx, logger: r.logger}
}

func (r *RatingHistoryRepository) Insert(ctx context.Context, entry *domain.RatingHistoryEntry) error {
	if entry.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rating_history (id, match_id, player_id, season_id, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.MatchID, entry.PlayerID, entry.SeasonID, entry.Rating, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rating history for match %d player %s: %w",
			entry.MatchID, entry.PlayerID, err)
	}
	return nil
}

func (r *RatingHistoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM rating_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rating history: %w", err)
	}
	return res.RowsAffected()
}

// ListByPlayer returns a player's history newest-first.
func (r *RatingHistoryRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingHistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, match_id, player_id, season_id, rating, created_at
		FROM rating_history WHERE player_id = ?
		ORDER BY match_id DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHistory(rows)
}

// All returns every history row ordered by match then player.
func (r *RatingHistoryRepository) All(ctx context.Context) ([]domain.RatingHistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, match_id, player_id, season_id, rating, created_at
		FROM rating_history ORDER BY match_id ASC, player_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHistory(rows)
}

func collectHistory(rows *sql.Rows) ([]domain.RatingHistoryEntry, error) {
	var entries []domain.RatingHistoryEntry
	for rows.Next() {
		var e domain.RatingHistoryEntry
		err := rows.Scan(&e.ID, &e.MatchID, &e.PlayerID, &e.SeasonID, &e.Rating, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
