package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// LadderServer is the HTTP surface over the core engine: player/season
// management, match recording and the admin operations (season transition
// and the two replays).
type LadderServer struct {
	playerSvc *service.PlayerService
	matchSvc  *service.MatchService
	seasonSvc *service.SeasonService
	replaySvc *service.ReplayService
	logger    zerolog.Logger
}

func NewLadderServer(playerSvc *service.PlayerService, matchSvc *service.MatchService, seasonSvc *service.SeasonService, replaySvc *service.ReplayService, logger zerolog.Logger) *LadderServer {
	return &LadderServer{
		playerSvc: playerSvc,
		matchSvc:  matchSvc,
		seasonSvc: seasonSvc,
		replaySvc: replaySvc,
		logger:    logger,
	}
}

func (s *LadderServer) Routes(r chi.Router) {
	r.Post("/v1/players", s.handleRegisterPlayer)
	r.Get("/v1/players/{playerID}", s.handleGetPlayer)
	r.Get("/v1/players/{playerID}/history", s.handlePlayerHistory)
	r.Get("/v1/leaderboard", s.handleLeaderboard)

	r.Post("/v1/matches", s.handleRecordMatch)

	r.Post("/v1/seasons", s.handleCreateSeason)
	r.Get("/v1/seasons", s.handleListSeasons)
	r.Get("/v1/seasons/active", s.handleActiveSeason)
	r.Get("/v1/seasons/{seasonID}/matches", s.handleSeasonMatches)
	r.Get("/v1/seasons/{seasonID}/snapshots", s.handleSeasonSnapshots)

	r.Post("/v1/admin/season-transition", s.handleSeasonTransition)
	r.Post("/v1/admin/replays/rating-history", s.handleReplayRatingHistory)
	r.Post("/v1/admin/replays/season-snapshots", s.handleReplaySeasonSnapshots)
}

type playerResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Rating          int    `json:"rating"`
	WinCount        int    `json:"win_count"`
	LossCount       int    `json:"loss_count"`
	BonusGivenCount int    `json:"bonus_given_count"`
	BonusTakenCount int    `json:"bonus_taken_count"`
}

func toPlayerResponse(p domain.Player) playerResponse {
	return playerResponse{
		ID:              p.ID,
		Name:            p.Name,
		Rating:          p.Rating,
		WinCount:        p.WinCount,
		LossCount:       p.LossCount,
		BonusGivenCount: p.BonusGivenCount,
		BonusTakenCount: p.BonusTakenCount,
	}
}

type seasonResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Active    bool    `json:"active"`
}

func toSeasonResponse(season domain.Season) seasonResponse {
	resp := seasonResponse{
		ID:        season.ID,
		Name:      season.Name,
		StartDate: season.StartDate.Format(time.DateOnly),
		Active:    season.Active,
	}
	if season.EndDate != nil {
		end := season.EndDate.Format(time.DateOnly)
		resp.EndDate = &end
	}
	return resp
}

func (s *LadderServer) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	player, err := s.playerSvc.Register(r.Context(), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPlayerResponse(*player))
}

func (s *LadderServer) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.playerSvc.Get(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(*player))
}

func (s *LadderServer) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.playerSvc.History(r.Context(), chi.URLParam(r, "playerID"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	type entryResponse struct {
		MatchID  int64  `json:"match_id"`
		SeasonID string `json:"season_id"`
		Rating   int    `json:"rating"`
	}
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryResponse{MatchID: e.MatchID, SeasonID: e.SeasonID, Rating: e.Rating}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.playerSvc.CurrentLeaderboard(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	players := make([]playerResponse, len(board.Players))
	for i, p := range board.Players {
		players[i] = toPlayerResponse(p)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"season":  toSeasonResponse(*board.Season),
		"players": players,
	})
}

func (s *LadderServer) handleRecordMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WinnerID string `json:"winner_id"`
		LoserID  string `json:"loser_id"`
		PlayedOn string `json:"played_on,omitempty"`
		Shutout  bool   `json:"shutout,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	params := service.RecordMatchParams{
		WinnerID: req.WinnerID,
		LoserID:  req.LoserID,
		Shutout:  req.Shutout,
	}
	if req.PlayedOn != "" {
		playedOn, err := time.Parse(time.DateOnly, req.PlayedOn)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		params.PlayedOn = playedOn
	}

	match, err := s.matchSvc.RecordMatch(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":        match.ID,
		"winner_id": match.WinnerID,
		"loser_id":  match.LoserID,
		"season_id": match.SeasonID,
		"played_on": match.PlayedOn.Format(time.DateOnly),
		"shutout":   match.Shutout,
	})
}

func (s *LadderServer) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	startDate, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		end, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		endDate = &end
	}

	season, err := s.seasonSvc.CreateSeason(r.Context(), req.Name, startDate, endDate)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toSeasonResponse(*season))
}

func (s *LadderServer) handleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.seasonSvc.ListSeasons(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]seasonResponse, len(seasons))
	for i, season := range seasons {
		resp[i] = toSeasonResponse(season)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) handleActiveSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.ActiveSeason(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSeasonResponse(*season))
}

func (s *LadderServer) handleSeasonMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.matchSvc.MatchesForSeason(r.Context(), chi.URLParam(r, "seasonID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	type matchResponse struct {
		ID       int64  `json:"id"`
		WinnerID string `json:"winner_id"`
		LoserID  string `json:"loser_id"`
		PlayedOn string `json:"played_on"`
		Shutout  bool   `json:"shutout"`
	}
	resp := make([]matchResponse, len(matches))
	for i, m := range matches {
		resp[i] = matchResponse{
			ID:       m.ID,
			WinnerID: m.WinnerID,
			LoserID:  m.LoserID,
			PlayedOn: m.PlayedOn.Format(time.DateOnly),
			Shutout:  m.Shutout,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) handleSeasonSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.replaySvc.SnapshotsForSeason(r.Context(), chi.URLParam(r, "seasonID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	type snapshotResponse struct {
		PlayerID  string `json:"player_id"`
		Rating    int    `json:"rating"`
		WinCount  int    `json:"win_count"`
		LossCount int    `json:"loss_count"`
	}
	resp := make([]snapshotResponse, len(snaps))
	for i, snap := range snaps {
		resp[i] = snapshotResponse{
			PlayerID:  snap.PlayerID,
			Rating:    snap.Rating,
			WinCount:  snap.WinCount,
			LossCount: snap.LossCount,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) handleSeasonTransition(w http.ResponseWriter, r *http.Request) {
	if err := s.seasonSvc.RunTransition(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *LadderServer) handleReplayRatingHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.replaySvc.ReplayRatingHistory(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *LadderServer) handleReplaySeasonSnapshots(w http.ResponseWriter, r *http.Request) {
	if err := s.replaySvc.ReplaySeasonSnapshots(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *LadderServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *LadderServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *LadderServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrNoActiveSeason), errors.Is(err, domain.ErrSeasonConfiguration):
		s.writeError(w, r, http.StatusConflict, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}
