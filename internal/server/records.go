package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/verte-zerg/typeracer/internal/api"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
	"github.com/verte-zerg/typeracer/internal/stats"
)

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var sub score.Submission
	if err := decode(w, r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !validPlayer(sub.Player) {
		s.writeError(w, r, badRequest("player id and name are required"))
		return
	}
	wpm, err := s.scores.Submit(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.ScoreResponse{WPM: wpm})
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var sub score.Submission
	if err := decode(w, r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !validPlayer(sub.Player) {
		s.writeError(w, r, badRequest("player id and name are required"))
		return
	}
	if err := s.scores.Record(r.Context(), sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.StatusResponse{Status: "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.records.Leaderboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats.SortLeaderboard(entries))
}

func (s *Server) handleUserSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.records.RecentSessions(r.Context(), mux.Vars(r)["id"], HistoryLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.SessionRecord{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	all, err := s.records.ListSessions(r.Context(), model.StatsConfig{UserID: userID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recent, err := s.records.RecentSessions(r.Context(), userID, HistoryLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recent == nil {
		recent = []model.SessionRecord{}
	}
	s.writeJSON(w, http.StatusOK, api.UserResponse{Stats: stats.UserStats(all), Sessions: recent})
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	c, err := s.corpus.Corpus(r.Context())
	if errors.Is(err, model.ErrNotFound) {
		err = race.ErrNoCorpus
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}
