package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/verte-zerg/typeracer/internal/api"
	"github.com/verte-zerg/typeracer/internal/model"
)

func validPlayer(p model.Player) bool {
	return strings.TrimSpace(p.ID) != "" && strings.TrimSpace(p.Name) != ""
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRoomRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !validPlayer(req.Player) {
		s.writeError(w, r, badRequest("player id and name are required"))
		return
	}
	created, err := s.races.CreateRoom(r.Context(), req.Player)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req api.JoinRoomRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !validPlayer(req.Player) {
		s.writeError(w, r, badRequest("player id and name are required"))
		return
	}
	joined, err := s.races.JoinRoom(r.Context(), req.Code, req.Player)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, joined)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.races.Snapshot(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	var req api.CountdownRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.races.StartCountdown(r.Context(), mux.Vars(r)["id"], req.CallerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	start, err := s.races.StartRacing(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StartResponse{StartTime: start})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req api.ProgressRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok, err := s.races.UpdateProgress(r.Context(), mux.Vars(r)["id"], req.ParticipantID, req.CharsTyped, req.WPM)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProgressResponse{Accepted: ok})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req api.FinishRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.races.FinishRace(r.Context(), mux.Vars(r)["id"], req.ParticipantID, req.WPM, req.CharsTyped); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req api.LeaveRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.races.LeaveRace(r.Context(), mux.Vars(r)["id"], req.ParticipantID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}
