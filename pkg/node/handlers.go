// Copyright 2025 Certen Protocol
//
// HTTP handlers exposing the node's gossip endpoints, wired onto an
// http.ServeMux by RegisterHandlers. Sender identity travels in headers
// rather than gRPC peer metadata, per SPEC_FULL's transport clarification.

package node

import (
	"encoding/json"
	"net/http"
)

// RegisterHandlers wires the gossip endpoints onto mux.
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/rpc/handshake", s.handleHandshake)
	mux.HandleFunc("/rpc/transaction", s.handleTransaction)
	mux.HandleFunc("/rpc/block", s.handleBlock)
	mux.HandleFunc("/rpc/push_state", s.handlePushState)
	mux.HandleFunc("/rpc/peer_exchange", s.handlePeerExchange)
	mux.HandleFunc("/rpc/heartbeat", s.handleHeartbeat)
}

func (s *Service) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var v Version
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid version payload")
		return
	}
	resp, err := s.Handshake(r.Context(), v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var env transactionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction payload")
		return
	}
	resp, err := s.HandleTransaction(r.Context(), env, r.Header.Get(headerListenAddr))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handleBlock(w http.ResponseWriter, r *http.Request) {
	var lb LeaderBlock
	if err := json.NewDecoder(r.Body).Decode(&lb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid block payload")
		return
	}
	resp, err := s.HandleBlock(r.Context(), lb)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handlePushState(w http.ResponseWriter, r *http.Request) {
	var req LocalState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid state request payload")
		return
	}
	resp, err := s.PushState(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handlePeerExchange(w http.ResponseWriter, r *http.Request) {
	var list PeerList
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		writeError(w, http.StatusBadRequest, "invalid peer list payload")
		return
	}
	resp, err := s.HandlePeerExchange(r.Context(), list)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, resp)
}

func (s *Service) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	resp, _ := s.HandleHeartbeat(r.Context(), Confirmed{})
	writeJSON(w, resp)
}
