package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/rating"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ReplayService rebuilds the derived tables from nothing but the match log.
// Both procedures run the same chronological scan the live path performed
// incrementally, including the per-player reset to the default rating at
// season boundaries, which the scan detects purely from the log: a player
// whose next match belongs to a different season than their previous one has
// crossed a boundary.
type ReplayService struct {
	db           *sql.DB
	matchRepo    *repository.MatchRepository
	seasonRepo   *repository.SeasonRepository
	historyRepo  *repository.RatingHistoryRepository
	snapshotRepo *repository.SeasonSnapshotRepository
	logger       zerolog.Logger

	// mu keeps the two replays mutually exclusive; each one reads the whole
	// log and rewrites a derived table, so interleaving them buys nothing
	mu sync.Mutex
}

func NewReplayService(db *sql.DB, matchRepo *repository.MatchRepository, seasonRepo *repository.SeasonRepository, historyRepo *repository.RatingHistoryRepository, snapshotRepo *repository.SeasonSnapshotRepository, logger zerolog.Logger) *ReplayService {
	return &ReplayService{
		db:           db,
		matchRepo:    matchRepo,
		seasonRepo:   seasonRepo,
		historyRepo:  historyRepo,
		snapshotRepo: snapshotRepo,
		logger:       logger,
	}
}

// tracked is the per-player scan state. Ratings and counters restart from the
// defaults whenever a player's match belongs to a season other than the one
// their previous match did.
type tracked struct {
	seasonID  string
	rating    int
	winCount  int
	lossCount int
}

// ReplayRatingHistory deletes every rating-history row and regenerates all of
// them from the match log. Deletion and regeneration share one transaction,
// so a failure anywhere leaves the old rows untouched. Running it twice with
// no new matches produces the same set both times.
func (s *ReplayService) ReplayRatingHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	history := s.historyRepo.WithTx(tx)

	matches, seasonIDs, err := s.loadLog(ctx, tx)
	if err != nil {
		return err
	}

	deleted, err := history.DeleteAll(ctx)
	if err != nil {
		return err
	}

	state := make(map[string]*tracked)
	written := 0
	for i, match := range matches {
		if err := checkOrder(matches, i); err != nil {
			return err
		}
		if _, ok := seasonIDs[match.SeasonID]; !ok {
			return fmt.Errorf("match %d references unknown season %s: %w",
				match.ID, match.SeasonID, domain.ErrSeasonConfiguration)
		}

		winner := resetIfCrossed(state, match.WinnerID, match.SeasonID)
		loser := resetIfCrossed(state, match.LoserID, match.SeasonID)

		winner.rating, loser.rating = rating.Rate(winner.rating, loser.rating)
		winner.winCount++
		loser.lossCount++

		for _, p := range []struct {
			playerID string
			rating   int
		}{
			{match.WinnerID, winner.rating},
			{match.LoserID, loser.rating},
		} {
			entry := &domain.RatingHistoryEntry{
				MatchID:  match.ID,
				PlayerID: p.playerID,
				SeasonID: match.SeasonID,
				Rating:   p.rating,
			}
			if err := history.Insert(ctx, entry); err != nil {
				return err
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rating history replay: %w", err)
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Int("written", written).
		Int("matches", len(matches)).
		Msg("rating history replayed")
	return nil
}

// ReplaySeasonSnapshots rebuilds the per-(season, player) final standings
// from the match log. Same scan and tracked state as the history replay, but
// only the last tracked state a player reached inside each season is kept.
// Pairs with zero matches never get a row.
func (s *ReplayService) ReplaySeasonSnapshots(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshots := s.snapshotRepo.WithTx(tx)

	matches, seasonIDs, err := s.loadLog(ctx, tx)
	if err != nil {
		return err
	}

	type pair struct{ seasonID, playerID string }
	state := make(map[string]*tracked)
	final := make(map[pair]tracked)
	order := make([]pair, 0)

	for i, match := range matches {
		if err := checkOrder(matches, i); err != nil {
			return err
		}
		if _, ok := seasonIDs[match.SeasonID]; !ok {
			return fmt.Errorf("match %d references unknown season %s: %w",
				match.ID, match.SeasonID, domain.ErrSeasonConfiguration)
		}

		winner := resetIfCrossed(state, match.WinnerID, match.SeasonID)
		loser := resetIfCrossed(state, match.LoserID, match.SeasonID)

		winner.rating, loser.rating = rating.Rate(winner.rating, loser.rating)
		winner.winCount++
		loser.lossCount++

		for playerID, st := range map[string]*tracked{
			match.WinnerID: winner,
			match.LoserID:  loser,
		} {
			key := pair{seasonID: match.SeasonID, playerID: playerID}
			if _, seen := final[key]; !seen {
				order = append(order, key)
			}
			final[key] = *st
		}
	}

	deleted, err := snapshots.DeleteAll(ctx)
	if err != nil {
		return err
	}

	for _, key := range order {
		st := final[key]
		snap := &domain.SeasonSnapshot{
			SeasonID:  key.seasonID,
			PlayerID:  key.playerID,
			Rating:    st.rating,
			WinCount:  st.winCount,
			LossCount: st.lossCount,
		}
		if err := snapshots.Upsert(ctx, snap); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit season snapshot replay: %w", err)
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Int("written", len(order)).
		Int("matches", len(matches)).
		Msg("season snapshots replayed")
	return nil
}

// SnapshotsForSeason returns a season's final standings from the snapshot
// table, best rating first.
func (s *ReplayService) SnapshotsForSeason(ctx context.Context, seasonID string) ([]domain.SeasonSnapshot, error) {
	if _, err := s.seasonRepo.Get(ctx, seasonID); err != nil {
		return nil, err
	}
	return s.snapshotRepo.ListBySeason(ctx, seasonID)
}

// loadLog reads the full ordered match log plus the set of known season ids
// inside the replay transaction, so the scan and the rewrite see one
// consistent view of the data.
func (s *ReplayService) loadLog(ctx context.Context, tx *sql.Tx) ([]domain.Match, map[string]struct{}, error) {
	matches, err := s.matchRepo.WithTx(tx).AllOrdered(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match log: %w", err)
	}
	seasonIDs, err := s.seasonRepo.WithTx(tx).ListIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load season ids: %w", err)
	}
	return matches, seasonIDs, nil
}

// resetIfCrossed returns the player's tracked state, restarting it from the
// cycle defaults when this is the player's first match or their first match
// in a new season.
func resetIfCrossed(state map[string]*tracked, playerID, seasonID string) *tracked {
	st, ok := state[playerID]
	if !ok || st.seasonID != seasonID {
		st = &tracked{seasonID: seasonID, rating: domain.DefaultRating}
		state[playerID] = st
	}
	return st
}

// checkOrder asserts the (played_on, id) key strictly increases through the
// log. The AUTOINCREMENT primary key makes a violation impossible unless the
// log query itself is broken, in which case aborting beats writing a history
// that silently disagrees with the live one.
func checkOrder(matches []domain.Match, i int) error {
	if i == 0 {
		return nil
	}
	prev, cur := matches[i-1], matches[i]
	if cur.PlayedOn.Before(prev.PlayedOn) || (cur.PlayedOn.Equal(prev.PlayedOn) && cur.ID <= prev.ID) {
		return fmt.Errorf("matches %d and %d: %w", prev.ID, cur.ID, domain.ErrOrderingAmbiguity)
	}
	return nil
}
