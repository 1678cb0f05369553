package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	q      DBTX
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{q: sqlDB, logger: logger}
}

func (r *MatchRepository) WithTx(tx *sql.Tx) *MatchRepository {
	return &MatchRepository{q: tx, logger: r.logger}
}

// Insert appends a match to the log and fills in its sequence id.
func (r *MatchRepository) Insert(ctx context.Context, match *domain.Match) error {
	match.CreatedAt = time.Now()
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO matches (winner_id, loser_id, season_id, played_on, shutout, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		match.WinnerID, match.LoserID, match.SeasonID,
		formatDate(match.PlayedOn), match.Shutout, match.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	match.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read match sequence id: %w", err)
	}

	r.logger.Debug().
		Int64("match_id", match.ID).
		Str("winner_id", match.WinnerID).
		Str("loser_id", match.LoserID).
		Str("season_id", match.SeasonID).
		Msg("match appended")
	return nil
}

// AllOrdered returns the full match log in replay order: played_on date
// ascending, insertion sequence as the tie-break for same-day matches.
func (r *MatchRepository) AllOrdered(ctx context.Context) ([]domain.Match, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, winner_id, loser_id, season_id, played_on, shutout, created_at
		FROM matches ORDER BY played_on ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListBySeason returns one season's slice of the log, same ordering.
func (r *MatchRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.Match, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, winner_id, loser_id, season_id, played_on, shutout, created_at
		FROM matches WHERE season_id = ? ORDER BY played_on ASC, id ASC`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMatches(rows)
}

func collectMatches(rows *sql.Rows) ([]domain.Match, error) {
	var matches []domain.Match
	for rows.Next() {
		var (
			m        domain.Match
			playedOn string
		)
		err := rows.Scan(&m.ID, &m.WinnerID, &m.LoserID, &m.SeasonID, &playedOn, &m.Shutout, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		if m.PlayedOn, err = parseDate(playedOn); err != nil {
			return nil, fmt.Errorf("match %d has malformed played_on %q: %w", m.ID, playedOn, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
