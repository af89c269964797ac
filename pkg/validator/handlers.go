// Copyright 2025 Certen Protocol

package validator

import (
	"encoding/json"
	"net/http"
)

// RegisterHandlers wires the consensus endpoints onto mux.
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/rpc/agreement", s.handleAgreement)
	mux.HandleFunc("/rpc/vote", s.handleVote)
}

func (s *Service) handleAgreement(w http.ResponseWriter, r *http.Request) {
	var msg HashAgreement
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid hash agreement payload")
		return
	}
	resp, err := s.HandleAgreement(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handleVote(w http.ResponseWriter, r *http.Request) {
	var msg Vote
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid vote payload")
		return
	}
	resp, err := s.HandleVote(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
