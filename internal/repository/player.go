package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	q      DBTX
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{q: sqlDB, logger: logger}
}

// WithTx returns a copy of the repository that runs inside tx.
func (r *PlayerRepository) WithTx(tx *sql.Tx) *PlayerRepository {
	return &PlayerRepository{q: tx, logger: r.logger}
}

func (r *PlayerRepository) Create(ctx context.Context, name string) (*domain.Player, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	player := &domain.Player{
		ID:        id,
		Name:      name,
		Rating:    domain.DefaultRating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO players (id, name, rating, win_count, loss_count, bonus_given_count, bonus_taken_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, 0, 0, 0, ?, ?)`,
		player.ID, player.Name, player.Rating, player.CreatedAt, player.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert player %s: %w", name, err)
	}

	r.logger.Debug().Str("player_id", player.ID).Str("name", name).Msg("player created")
	return player, nil
}

func (r *PlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, rating, win_count, loss_count, bonus_given_count, bonus_taken_count, created_at, updated_at
		FROM players WHERE id = ?`, id)

	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, domain.ErrNotFound)
	}
	return player, err
}

// List returns all players ordered for the ladder standings: rating first,
// win count and name as tie-breaks.
func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, rating, win_count, loss_count, bonus_given_count, bonus_taken_count, created_at, updated_at
		FROM players ORDER BY rating DESC, win_count DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *player)
	}
	return players, rows.Err()
}

// Save writes back a player's current-cycle counters.
func (r *PlayerRepository) Save(ctx context.Context, player *domain.Player) error {
	player.UpdatedAt = time.Now()
	res, err := r.q.ExecContext(ctx, `
		UPDATE players
		SET rating = ?, win_count = ?, loss_count = ?, bonus_given_count = ?, bonus_taken_count = ?, updated_at = ?
		WHERE id = ?`,
		player.Rating, player.WinCount, player.LossCount,
		player.BonusGivenCount, player.BonusTakenCount, player.UpdatedAt, player.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", player.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("player %s: %w", player.ID, domain.ErrNotFound)
	}
	return nil
}

// ResetCycleCounters puts every player back to the defaults a new season
// starts from. One statement so the bulk reset is all-or-nothing.
func (r *PlayerRepository) ResetCycleCounters(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE players
		SET rating = ?, win_count = 0, loss_count = 0, bonus_given_count = 0, bonus_taken_count = 0, updated_at = ?`,
		domain.DefaultRating, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset player counters: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID, &p.Name, &p.Rating, &p.WinCount, &p.LossCount,
		&p.BonusGivenCount, &p.BonusTakenCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
