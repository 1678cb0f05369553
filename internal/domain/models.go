package domain

import (
	"time"
)

// DefaultRating is the rating every player starts a season cycle with.
const DefaultRating = 1000

type Player struct {
	ID              string // nanoid
	Name            string
	Rating          int
	WinCount        int
	LossCount       int
	BonusGivenCount int // shutouts inflicted this cycle
	BonusTakenCount int // shutouts suffered this cycle
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Season struct {
	ID        string // nanoid
	Name      string
	StartDate time.Time
	EndDate   *time.Time // nil = open-ended
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is an immutable log record of one head-to-head outcome. ID is an
// AUTOINCREMENT sequence and doubles as the tie-break for matches sharing a
// PlayedOn date, so replays always see the log in insertion order.
type Match struct {
	ID        int64
	WinnerID  string
	LoserID   string
	SeasonID  string
	PlayedOn  time.Time
	Shutout   bool // loser never scored; bumps bonus counters, never the rating
	CreatedAt time.Time
}

// RatingHistoryEntry holds one participant's rating after a match was
// applied. Exactly two exist per match. Fully regenerable from the match log.
type RatingHistoryEntry struct {
	ID        string // nanoid
	MatchID   int64
	PlayerID  string
	SeasonID  string
	Rating    int
	CreatedAt time.Time
}

// SeasonSnapshot is a player's final standing for one season: the tracked
// state after the last match they played inside that season.
type SeasonSnapshot struct {
	SeasonID  string
	PlayerID  string
	Rating    int
	WinCount  int
	LossCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}
