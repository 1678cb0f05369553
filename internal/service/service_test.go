package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ladder-tracker/internal/config"
	"ladder-tracker/internal/database"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a private in-memory database with the real migrations
// applied. A pinned connection keeps the shared-cache database alive for the
// duration of the test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	id, err := gonanoid.New()
	require.NoError(t, err)

	cfg := &config.Config{DBPath: fmt.Sprintf("file:%s?mode=memory&cache=shared", id)}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		db.Close()
	})
	return db
}

type testEnv struct {
	db        *sql.DB
	players   *repository.PlayerRepository
	seasons   *repository.SeasonRepository
	matches   *repository.MatchRepository
	history   *repository.RatingHistoryRepository
	snapshots *repository.SeasonSnapshotRepository

	playerSvc *PlayerService
	seasonSvc *SeasonService
	matchSvc  *MatchService
	replaySvc *ReplayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	nop := zerolog.Nop()

	env := &testEnv{
		db:        db,
		players:   repository.NewPlayerRepository(db, nop),
		seasons:   repository.NewSeasonRepository(db, nop),
		matches:   repository.NewMatchRepository(db, nop),
		history:   repository.NewRatingHistoryRepository(db, nop),
		snapshots: repository.NewSeasonSnapshotRepository(db, nop),
	}
	env.playerSvc = NewPlayerService(env.players, env.seasons, env.history, nop)
	env.seasonSvc = NewSeasonService(db, env.seasons, env.players, nop)
	env.matchSvc = NewMatchService(db, env.matches, env.players, env.seasons, env.history, nop)
	env.replaySvc = NewReplayService(db, env.matches, env.seasons, env.history, env.snapshots, nop)
	return env
}

func day(offset int) time.Time {
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

// pinToday makes the season service see a fixed "today".
func pinToday(svc *SeasonService, today time.Time) {
	svc.now = func() time.Time { return today }
}

func createPlayer(t *testing.T, env *testEnv, name string) *domain.Player {
	t.Helper()
	player, err := env.players.Create(context.Background(), name)
	require.NoError(t, err)
	return player
}

func createSeason(t *testing.T, env *testEnv, name string, start time.Time, end *time.Time) *domain.Season {
	t.Helper()
	season, err := env.seasons.Create(context.Background(), name, start, end)
	require.NoError(t, err)
	return season
}

func transitionOn(t *testing.T, env *testEnv, today time.Time) {
	t.Helper()
	pinToday(env.seasonSvc, today)
	require.NoError(t, env.seasonSvc.RunTransition(context.Background()))
}

func recordMatch(t *testing.T, env *testEnv, winner, loser *domain.Player, playedOn time.Time) *domain.Match {
	t.Helper()
	match, err := env.matchSvc.RecordMatch(context.Background(), RecordMatchParams{
		WinnerID: winner.ID,
		LoserID:  loser.ID,
		PlayedOn: playedOn,
	})
	require.NoError(t, err)
	return match
}
