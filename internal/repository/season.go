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

type SeasonRepository struct {
	q      DBTX
	logger zerolog.Logger
}

func NewSeasonRepository(sqlDB *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{q: sqlDB, logger: logger}
}

func (r *SeasonRepository) WithTx(tx *sql.Tx) *SeasonRepository {
	return &SeasonRepository{q: tx, logger: r.logger}
}

func (r *SeasonRepository) Create(ctx context.Context, name string, startDate time.Time, endDate *time.Time) (*domain.Season, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	season := &domain.Season{
		ID:        id,
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var end sql.NullString
	if endDate != nil {
		end = sql.NullString{String: formatDate(*endDate), Valid: true}
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO seasons (id, name, start_date, end_date, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		season.ID, season.Name, formatDate(startDate), end, season.CreatedAt, season.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert season %s: %w", name, err)
	}

	r.logger.Debug().Str("season_id", season.ID).Str("name", name).Msg("season created")
	return season, nil
}

func (r *SeasonRepository) Get(ctx context.Context, id string) (*domain.Season, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, active, created_at, updated_at
		FROM seasons WHERE id = ?`, id)

	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("season %s: %w", id, domain.ErrNotFound)
	}
	return season, err
}

func (r *SeasonRepository) GetActive(ctx context.Context) (*domain.Season, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, active, created_at, updated_at
		FROM seasons WHERE active = 1`)

	season, err := scanSeason(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoActiveSeason
	}
	return season, err
}

func (r *SeasonRepository) List(ctx context.Context) ([]domain.Season, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, active, created_at, updated_at
		FROM seasons ORDER BY start_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeasons(rows)
}

// ListIDs returns the set of known season ids. Replays use it to reject a
// match log that references a season the calendar does not know about.
func (r *SeasonRepository) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM seasons`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ExpireEndedBefore flips active off for every active season whose end date
// is strictly before day. Returns the number of seasons expired.
func (r *SeasonRepository) ExpireEndedBefore(ctx context.Context, day time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE seasons SET active = 0, updated_at = ?
		WHERE active = 1 AND end_date IS NOT NULL AND end_date < ?`,
		time.Now(), formatDate(day),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire seasons: %w", err)
	}
	return res.RowsAffected()
}

// FindCovering returns every season whose window contains day, active or not.
func (r *SeasonRepository) FindCovering(ctx context.Context, day time.Time) ([]domain.Season, error) {
	d := formatDate(day)
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, active, created_at, updated_at
		FROM seasons
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY start_date ASC, id ASC`, d, d)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeasons(rows)
}

func (r *SeasonRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE seasons SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set season %s active=%t: %w", id, active, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("season %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanSeason(row rowScanner) (*domain.Season, error) {
	var (
		s     domain.Season
		start string
		end   sql.NullString
	)
	err := row.Scan(&s.ID, &s.Name, &start, &end, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if s.StartDate, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("season %s has malformed start_date %q: %w", s.ID, start, err)
	}
	if end.Valid {
		endDate, err := parseDate(end.String)
		if err != nil {
			return nil, fmt.Errorf("season %s has malformed end_date %q: %w", s.ID, end.String, err)
		}
		s.EndDate = &endDate
	}
	return &s, nil
}

func collectSeasons(rows *sql.Rows) ([]domain.Season, error) {
	var seasons []domain.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, *season)
	}
	return seasons, rows.Err()
}
