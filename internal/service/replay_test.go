package service

import (
	"context"
	"testing"

	"ladder-tracker/internal/domain"

	"github.com/stretchr/testify/require"
)

// historyKey is the identity of a history row for set comparison; the nanoid
// and timestamp differ between live and replayed rows by construction.
type historyKey struct {
	MatchID  int64
	PlayerID string
	SeasonID string
	Rating   int
}

func historyKeys(t *testing.T, env *testEnv) []historyKey {
	t.Helper()
	entries, err := env.history.All(context.Background())
	require.NoError(t, err)
	keys := make([]historyKey, len(entries))
	for i, e := range entries {
		keys[i] = historyKey{MatchID: e.MatchID, PlayerID: e.PlayerID, SeasonID: e.SeasonID, Rating: e.Rating}
	}
	return keys
}

// twoSeasonFixture drives the live path across a season boundary: alice
// beats bob twice in season one, the ladder rolls over to season two, then
// alice beats bob once more against reset counters.
type twoSeasonFixture struct {
	env        *testEnv
	alice, bob *domain.Player
	one, two   *domain.Season
	m1, m2, m3 *domain.Match
}

func setupTwoSeasons(t *testing.T) *twoSeasonFixture {
	t.Helper()
	env := newTestEnv(t)

	f := &twoSeasonFixture{env: env}
	f.one = createSeason(t, env, "season one", day(0), datePtr(day(10)))
	f.two = createSeason(t, env, "season two", day(11), nil)

	f.alice = createPlayer(t, env, "alice")
	f.bob = createPlayer(t, env, "bob")

	transitionOn(t, env, day(0))
	f.m1 = recordMatch(t, env, f.alice, f.bob, day(1))
	f.m2 = recordMatch(t, env, f.alice, f.bob, day(2))

	transitionOn(t, env, day(11))
	f.m3 = recordMatch(t, env, f.alice, f.bob, day(12))
	return f
}

func TestReplayRatingHistoryReproducesLivePath(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	liveKeys := historyKeys(t, f.env)
	require.Len(t, liveKeys, 6)

	// wipe the derived table, then rebuild it from the log alone
	_, err := f.env.history.DeleteAll(ctx)
	require.NoError(t, err)

	require.NoError(t, f.env.replaySvc.ReplayRatingHistory(ctx))

	require.ElementsMatch(t, liveKeys, historyKeys(t, f.env))
}

func TestReplayRatingHistoryExactValues(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	_, err := f.env.history.DeleteAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.env.replaySvc.ReplayRatingHistory(ctx))

	want := []historyKey{
		{MatchID: f.m1.ID, PlayerID: f.alice.ID, SeasonID: f.one.ID, Rating: 1016},
		{MatchID: f.m1.ID, PlayerID: f.bob.ID, SeasonID: f.one.ID, Rating: 984},
		{MatchID: f.m2.ID, PlayerID: f.alice.ID, SeasonID: f.one.ID, Rating: 1031},
		{MatchID: f.m2.ID, PlayerID: f.bob.ID, SeasonID: f.one.ID, Rating: 969},
		// season boundary: both players restart from 1000
		{MatchID: f.m3.ID, PlayerID: f.alice.ID, SeasonID: f.two.ID, Rating: 1016},
		{MatchID: f.m3.ID, PlayerID: f.bob.ID, SeasonID: f.two.ID, Rating: 984},
	}
	require.ElementsMatch(t, want, historyKeys(t, f.env))
}

func TestReplayRatingHistoryIdempotent(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	require.NoError(t, f.env.replaySvc.ReplayRatingHistory(ctx))
	first := historyKeys(t, f.env)

	require.NoError(t, f.env.replaySvc.ReplayRatingHistory(ctx))
	second := historyKeys(t, f.env)

	require.ElementsMatch(t, first, second)
}

func TestReplayRatingHistoryEmptyLog(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.replaySvc.ReplayRatingHistory(context.Background()))

	entries, err := env.history.All(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReplaySeasonSnapshots(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	require.NoError(t, f.env.replaySvc.ReplaySeasonSnapshots(ctx))

	count, err := f.env.snapshots.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, count)

	tests := []struct {
		name      string
		seasonID  string
		playerID  string
		rating    int
		winCount  int
		lossCount int
	}{
		{name: "season one alice", seasonID: f.one.ID, playerID: f.alice.ID, rating: 1031, winCount: 2},
		{name: "season one bob", seasonID: f.one.ID, playerID: f.bob.ID, rating: 969, lossCount: 2},
		{name: "season two alice", seasonID: f.two.ID, playerID: f.alice.ID, rating: 1016, winCount: 1},
		{name: "season two bob", seasonID: f.two.ID, playerID: f.bob.ID, rating: 984, lossCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := f.env.snapshots.Get(ctx, tt.seasonID, tt.playerID)
			require.NoError(t, err)
			require.Equal(t, tt.rating, snap.Rating)
			require.Equal(t, tt.winCount, snap.WinCount)
			require.Equal(t, tt.lossCount, snap.LossCount)
		})
	}
}

func TestReplaySeasonSnapshotsMatchesLiveCounters(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	// the still-active season's snapshot must equal the live counters
	require.NoError(t, f.env.replaySvc.ReplaySeasonSnapshots(ctx))

	for _, playerID := range []string{f.alice.ID, f.bob.ID} {
		live, err := f.env.players.Get(ctx, playerID)
		require.NoError(t, err)

		snap, err := f.env.snapshots.Get(ctx, f.two.ID, playerID)
		require.NoError(t, err)
		require.Equal(t, live.Rating, snap.Rating)
		require.Equal(t, live.WinCount, snap.WinCount)
		require.Equal(t, live.LossCount, snap.LossCount)
	}
}

func TestReplaySeasonSnapshotsIdempotent(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	require.NoError(t, f.env.replaySvc.ReplaySeasonSnapshots(ctx))
	first, err := f.env.snapshots.ListBySeason(ctx, f.one.ID)
	require.NoError(t, err)

	require.NoError(t, f.env.replaySvc.ReplaySeasonSnapshots(ctx))
	second, err := f.env.snapshots.ListBySeason(ctx, f.one.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].PlayerID, second[i].PlayerID)
		require.Equal(t, first[i].Rating, second[i].Rating)
		require.Equal(t, first[i].WinCount, second[i].WinCount)
		require.Equal(t, first[i].LossCount, second[i].LossCount)
	}
}

func TestReplaySeasonSnapshotsSkipsIdlePairs(t *testing.T) {
	f := setupTwoSeasons(t)
	ctx := context.Background()

	// carol never played; no snapshot may exist for her in either season
	carol := createPlayer(t, f.env, "carol")
	require.NoError(t, f.env.replaySvc.ReplaySeasonSnapshots(ctx))

	_, err := f.env.snapshots.Get(ctx, f.one.ID, carol.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.env.snapshots.Get(ctx, f.two.ID, carol.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReplaysOrderSameDayMatchesByInsertionSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	createSeason(t, env, "season one", day(0), nil)
	transitionOn(t, env, day(0))

	alice := createPlayer(t, env, "alice")
	bob := createPlayer(t, env, "bob")

	// two matches on the same date; insertion order decides the replay order
	recordMatch(t, env, alice, bob, day(1))
	recordMatch(t, env, bob, alice, day(1))

	liveKeys := historyKeys(t, env)
	_, err := env.history.DeleteAll(ctx)
	require.NoError(t, err)

	require.NoError(t, env.replaySvc.ReplayRatingHistory(ctx))
	require.ElementsMatch(t, liveKeys, historyKeys(t, env))
}
