package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/rating"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// MatchService is the live recording path: one call appends a match to the
// log, re-rates both participants and writes their history rows.
type MatchService struct {
	db          *sql.DB
	matchRepo   *repository.MatchRepository
	playerRepo  *repository.PlayerRepository
	seasonRepo  *repository.SeasonRepository
	historyRepo *repository.RatingHistoryRepository
	logger      zerolog.Logger
}

func NewMatchService(db *sql.DB, matchRepo *repository.MatchRepository, playerRepo *repository.PlayerRepository, seasonRepo *repository.SeasonRepository, historyRepo *repository.RatingHistoryRepository, logger zerolog.Logger) *MatchService {
	return &MatchService{
		db:          db,
		matchRepo:   matchRepo,
		playerRepo:  playerRepo,
		seasonRepo:  seasonRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

type RecordMatchParams struct {
	WinnerID string
	LoserID  string
	PlayedOn time.Time // zero value means today
	Shutout  bool
}

// RecordMatch applies one match to the ladder. The append, both rating
// updates and both history rows commit as a single transaction; the replay
// procedures rebuild exactly this state from the log, so a partial write
// would be an undetectable divergence between the two paths.
func (s *MatchService) RecordMatch(ctx context.Context, params RecordMatchParams) (*domain.Match, error) {
	if params.WinnerID == params.LoserID {
		return nil, fmt.Errorf("winner and loser are the same player %s", params.WinnerID)
	}
	if params.PlayedOn.IsZero() {
		params.PlayedOn = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seasons := s.seasonRepo.WithTx(tx)
	players := s.playerRepo.WithTx(tx)
	matches := s.matchRepo.WithTx(tx)
	history := s.historyRepo.WithTx(tx)

	season, err := seasons.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	winner, err := players.Get(ctx, params.WinnerID)
	if err != nil {
		return nil, err
	}
	loser, err := players.Get(ctx, params.LoserID)
	if err != nil {
		return nil, err
	}

	match := &domain.Match{
		WinnerID: winner.ID,
		LoserID:  loser.ID,
		SeasonID: season.ID,
		PlayedOn: params.PlayedOn,
		Shutout:  params.Shutout,
	}
	if err := matches.Insert(ctx, match); err != nil {
		return nil, err
	}

	winner.Rating, loser.Rating = rating.Rate(winner.Rating, loser.Rating)
	winner.WinCount++
	loser.LossCount++
	if params.Shutout {
		winner.BonusGivenCount++
		loser.BonusTakenCount++
	}

	if err := players.Save(ctx, winner); err != nil {
		return nil, err
	}
	if err := players.Save(ctx, loser); err != nil {
		return nil, err
	}

	for _, participant := range []*domain.Player{winner, loser} {
		entry := &domain.RatingHistoryEntry{
			MatchID:  match.ID,
			PlayerID: participant.ID,
			SeasonID: season.ID,
			Rating:   participant.Rating,
		}
		if err := history.Insert(ctx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match: %w", err)
	}

	s.logger.Info().
		Int64("match_id", match.ID).
		Str("winner_id", winner.ID).
		Int("winner_rating", winner.Rating).
		Str("loser_id", loser.ID).
		Int("loser_rating", loser.Rating).
		Bool("shutout", params.Shutout).
		Msg("match recorded")
	return match, nil
}

func (s *MatchService) MatchesForSeason(ctx context.Context, seasonID string) ([]domain.Match, error) {
	return s.matchRepo.ListBySeason(ctx, seasonID)
}
