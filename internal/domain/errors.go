package domain

import "errors"

var (
	// ErrSeasonConfiguration means the season table cannot answer "which
	// season covers today" with exactly one row. The transition refuses to
	// guess; the data has to be fixed by whoever maintains the calendar.
	ErrSeasonConfiguration = errors.New("season configuration inconsistent")

	// ErrNoActiveSeason means a match was recorded while no season is active.
	ErrNoActiveSeason = errors.New("no active season")

	// ErrOrderingAmbiguity means the match log produced two records whose
	// (played_on, id) ordering key did not strictly increase. The schema
	// makes this impossible; seeing it means the log query is broken.
	ErrOrderingAmbiguity = errors.New("match log ordering ambiguous")

	// ErrNotFound is returned by repositories for missing rows.
	ErrNotFound = errors.New("not found")
)
