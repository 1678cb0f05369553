package fx

import (
	"ladder-tracker/internal/config"
	"ladder-tracker/internal/database"
	"ladder-tracker/internal/logger"
	"ladder-tracker/internal/repository"
	"ladder-tracker/internal/server"
	"ladder-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRatingHistoryRepository),
	fx.Provide(repository.NewSeasonSnapshotRepository),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewReplayService),
	// server
	fx.Provide(server.NewLadderServer),
)
