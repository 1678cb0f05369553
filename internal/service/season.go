package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// SeasonService owns season activation. RunTransition is the only code that
// flips the active flag or bulk-resets player counters.
type SeasonService struct {
	db         *sql.DB
	seasonRepo *repository.SeasonRepository
	playerRepo *repository.PlayerRepository
	logger     zerolog.Logger

	// now is swapped out by tests to pin "today"
	now func() time.Time
}

func NewSeasonService(db *sql.DB, seasonRepo *repository.SeasonRepository, playerRepo *repository.PlayerRepository, logger zerolog.Logger) *SeasonService {
	return &SeasonService{
		db:         db,
		seasonRepo: seasonRepo,
		playerRepo: playerRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *SeasonService) CreateSeason(ctx context.Context, name string, startDate time.Time, endDate *time.Time) (*domain.Season, error) {
	if endDate != nil && endDate.Before(startDate) {
		return nil, fmt.Errorf("season %q ends before it starts", name)
	}
	return s.seasonRepo.Create(ctx, name, startDate, endDate)
}

func (s *SeasonService) ListSeasons(ctx context.Context) ([]domain.Season, error) {
	return s.seasonRepo.List(ctx)
}

func (s *SeasonService) ActiveSeason(ctx context.Context) (*domain.Season, error) {
	return s.seasonRepo.GetActive(ctx)
}

// RunTransition advances the season state machine. Safe to run on any
// cadence: expiring an already-expired season is a no-op, and re-running
// against an already-active season neither re-activates it nor re-fires the
// player reset.
//
// Expiry and activation commit separately. An expired season stays expired
// even when the calendar has no (or more than one) successor; that situation
// is reported as ErrSeasonConfiguration rather than guessed around.
func (s *SeasonService) RunTransition(ctx context.Context) error {
	today := s.now()

	expired, err := s.expireEndedSeasons(ctx, today)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.logger.Info().Int64("count", expired).Msg("seasons expired")
	}

	candidates, err := s.seasonRepo.FindCovering(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to find season for today: %w", err)
	}

	switch len(candidates) {
	case 1:
		// fall through to activation
	case 0:
		return fmt.Errorf("%w: no season covers %s", domain.ErrSeasonConfiguration, today.Format(time.DateOnly))
	default:
		return fmt.Errorf("%w: %d seasons cover %s", domain.ErrSeasonConfiguration, len(candidates), today.Format(time.DateOnly))
	}

	season := candidates[0]
	if season.Active {
		s.logger.Debug().Str("season_id", season.ID).Msg("season already active, nothing to do")
		return nil
	}

	return s.activate(ctx, season)
}

func (s *SeasonService) expireEndedSeasons(ctx context.Context, today time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	expired, err := s.seasonRepo.WithTx(tx).ExpireEndedBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	return expired, tx.Commit()
}

// activate marks the season active and resets every player's cycle counters.
// Both happen in one transaction: a season must never be observed active with
// stale counters still standing.
func (s *SeasonService) activate(ctx context.Context, season domain.Season) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.seasonRepo.WithTx(tx).SetActive(ctx, season.ID, true); err != nil {
		return err
	}

	resetCount, err := s.playerRepo.WithTx(tx).ResetCycleCounters(ctx)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit season activation: %w", err)
	}

	s.logger.Info().
		Str("season_id", season.ID).
		Str("season_name", season.Name).
		Int64("players_reset", resetCount).
		Msg("season activated")
	return nil
}
