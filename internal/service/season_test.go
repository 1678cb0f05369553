package service

import (
	"context"
	"testing"

	"ladder-tracker/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestRunTransitionExpiresEndedSeason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	season := createSeason(t, env, "spring", day(-20), datePtr(day(-1)))
	require.NoError(t, env.seasons.SetActive(ctx, season.ID, true))

	player := createPlayer(t, env, "alice")
	player.Rating = 1400
	player.WinCount = 7
	require.NoError(t, env.players.Save(ctx, player))

	pinToday(env.seasonSvc, day(0))
	err := env.seasonSvc.RunTransition(ctx)

	// the expiry is durable even though no successor season exists; the
	// missing successor is reported, not guessed around
	require.ErrorIs(t, err, domain.ErrSeasonConfiguration)

	got, getErr := env.seasons.Get(ctx, season.ID)
	require.NoError(t, getErr)
	require.False(t, got.Active)

	// expiry alone never touches player counters
	player, getErr = env.players.Get(ctx, player.ID)
	require.NoError(t, getErr)
	require.Equal(t, 1400, player.Rating)
	require.Equal(t, 7, player.WinCount)
}

func TestRunTransitionActivatesNewSeasonAndResetsPlayers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	season := createSeason(t, env, "summer", day(0), nil)

	player := createPlayer(t, env, "alice")
	player.Rating = 2000
	player.WinCount = 50
	player.LossCount = 10
	player.BonusGivenCount = 5
	player.BonusTakenCount = 2
	require.NoError(t, env.players.Save(ctx, player))

	transitionOn(t, env, day(0))

	got, err := env.seasons.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, season.ID, got.ID)

	player, err = env.players.Get(ctx, player.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultRating, player.Rating)
	require.Zero(t, player.WinCount)
	require.Zero(t, player.LossCount)
	require.Zero(t, player.BonusGivenCount)
	require.Zero(t, player.BonusTakenCount)
}

func TestRunTransitionIsIdempotentForOngoingSeason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	season := createSeason(t, env, "summer", day(-5), datePtr(day(30)))
	transitionOn(t, env, day(0))

	// counters earned after activation must survive repeated runs: the reset
	// fires on a season becoming newly active, not on time passing
	player := createPlayer(t, env, "alice")
	player.Rating = 1150
	player.WinCount = 3
	require.NoError(t, env.players.Save(ctx, player))

	transitionOn(t, env, day(1))
	transitionOn(t, env, day(2))

	got, err := env.seasons.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, season.ID, got.ID)

	player, err = env.players.Get(ctx, player.ID)
	require.NoError(t, err)
	require.Equal(t, 1150, player.Rating)
	require.Equal(t, 3, player.WinCount)
}

func TestRunTransitionRollsOverToNextSeason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createSeason(t, env, "spring", day(-30), datePtr(day(-1)))
	next := createSeason(t, env, "summer", day(0), nil)
	transitionOn(t, env, day(-10))

	transitionOn(t, env, day(0))

	got, err := env.seasons.GetActive(ctx)
	require.NoError(t, err)
	require.Equal(t, next.ID, got.ID)
}

func TestRunTransitionRejectsOverlappingSeasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createSeason(t, env, "one", day(-5), datePtr(day(5)))
	createSeason(t, env, "two", day(-2), nil)

	pinToday(env.seasonSvc, day(0))
	err := env.seasonSvc.RunTransition(ctx)
	require.ErrorIs(t, err, domain.ErrSeasonConfiguration)

	// nothing was activated
	_, err = env.seasons.GetActive(ctx)
	require.ErrorIs(t, err, domain.ErrNoActiveSeason)
}

func TestRunTransitionRejectsEmptyCalendar(t *testing.T) {
	env := newTestEnv(t)

	pinToday(env.seasonSvc, day(0))
	err := env.seasonSvc.RunTransition(context.Background())
	require.ErrorIs(t, err, domain.ErrSeasonConfiguration)
}

func TestRunTransitionNeverReactivatesExpiredSeason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createSeason(t, env, "spring", day(-30), datePtr(day(-1)))
	next := createSeason(t, env, "summer", day(0), datePtr(day(30)))
	transitionOn(t, env, day(-10))
	transitionOn(t, env, day(0))

	// repeated runs keep the successor active and the old season expired
	transitionOn(t, env, day(1))

	seasons, err := env.seasons.List(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	for _, season := range seasons {
		require.Equal(t, season.ID == next.ID, season.Active)
	}
}
