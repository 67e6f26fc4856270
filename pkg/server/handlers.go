package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn().Err(err).Msg("could not encode response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.ListThreads()
	if err != nil {
		s.logger.Error().Err(err).Msg("could not list threads")
		s.sendError(w, http.StatusInternalServerError, "could not list threads")
		return
	}
	s.sendJSON(w, http.StatusOK, infos)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	state, ok, err := s.store.LoadThread(id)
	if err != nil {
		s.logger.Error().Err(err).Str("thread", id).Msg("could not load thread")
		s.sendError(w, http.StatusInternalServerError, "could not load thread")
		return
	}
	if !ok {
		s.sendError(w, http.StatusNotFound, "thread not found")
		return
	}
	s.publish(events.NewThreadLoadedEvent(state.ID, len(state.Messages)))
	s.sendJSON(w, http.StatusOK, state)
}

func (s *Server) getLastThread(w http.ResponseWriter, r *http.Request) {
	state, ok, err := s.store.LoadLastThread()
	if err != nil {
		s.logger.Error().Err(err).Msg("could not load last thread")
		s.sendError(w, http.StatusInternalServerError, "could not load last thread")
		return
	}
	if !ok {
		s.sendError(w, http.StatusNotFound, "no threads saved")
		return
	}
	s.publish(events.NewThreadLoadedEvent(state.ID, len(state.Messages)))
	s.sendJSON(w, http.StatusOK, state)
}

func (s *Server) putThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var state store.ThreadState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid thread state")
		return
	}
	state.ID = id

	// reconcile with what is already stored rather than overwriting
	// blindly, so a stale client cannot drop messages
	if existing, ok, err := s.store.LoadThread(id); err == nil && ok {
		state.Messages = conversation.Merge(existing.Messages, state.Messages)
		state.CreatedAt = existing.CreatedAt
	}

	if err := s.store.SaveThread(&state); err != nil {
		s.logger.Error().Err(err).Str("thread", id).Msg("could not save thread")
		s.sendError(w, http.StatusInternalServerError, "could not save thread")
		return
	}
	s.publish(events.NewThreadSavedEvent(state.ID, len(state.Messages)))
	s.sendJSON(w, http.StatusOK, state.Info())
}

// deleteThread is idempotent: deleting an absent thread reports success,
// so clients can retry blindly.
func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteThread(id); err != nil {
		s.logger.Error().Err(err).Str("thread", id).Msg("could not delete thread")
		s.sendError(w, http.StatusInternalServerError, "could not delete thread")
		return
	}
	s.publish(events.NewThreadDeletedEvent(id))
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) getThreadPath(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	state, ok, err := s.store.LoadThread(id)
	if err != nil {
		s.logger.Error().Err(err).Str("thread", id).Msg("could not load thread")
		s.sendError(w, http.StatusInternalServerError, "could not load thread")
		return
	}
	if !ok {
		s.sendError(w, http.StatusNotFound, "thread not found")
		return
	}

	path := conversation.DerivePath(state.Messages, state.Selection)
	s.sendJSON(w, http.StatusOK, path)
}
