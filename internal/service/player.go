package service

import (
	"context"
	"fmt"

	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerService struct {
	playerRepo  *repository.PlayerRepository
	seasonRepo  *repository.SeasonRepository
	historyRepo *repository.RatingHistoryRepository
	logger      zerolog.Logger
}

func NewPlayerService(playerRepo *repository.PlayerRepository, seasonRepo *repository.SeasonRepository, historyRepo *repository.RatingHistoryRepository, logger zerolog.Logger) *PlayerService {
	return &PlayerService{
		playerRepo:  playerRepo,
		seasonRepo:  seasonRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *PlayerService) Register(ctx context.Context, name string) (*domain.Player, error) {
	if name == "" {
		return nil, fmt.Errorf("player name is required")
	}
	player, err := s.playerRepo.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("player_id", player.ID).Str("name", name).Msg("player registered")
	return player, nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	return s.playerRepo.Get(ctx, id)
}

func (s *PlayerService) History(ctx context.Context, playerID string, limit int) ([]domain.RatingHistoryEntry, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if _, err := s.playerRepo.Get(ctx, playerID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByPlayer(ctx, playerID, limit)
}

// Leaderboard bundles the current standings with the season they belong to.
type Leaderboard struct {
	Season  *domain.Season
	Players []domain.Player
}

// CurrentLeaderboard fetches the active season and the ranked player list
// concurrently; both reads are independent.
func (s *PlayerService) CurrentLeaderboard(ctx context.Context) (*Leaderboard, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var board Leaderboard
	g.Go(func() error {
		season, err := s.seasonRepo.GetActive(gCtx)
		if err != nil {
			return err
		}
		board.Season = season
		return nil
	})
	g.Go(func() error {
		players, err := s.playerRepo.List(gCtx)
		if err != nil {
			return err
		}
		board.Players = players
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &board, nil
}
