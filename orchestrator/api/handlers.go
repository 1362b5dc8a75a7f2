package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	for _, p := range s.protocols {
		resp.Protocols = append(resp.Protocols, p.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTransaction handles GET /api/v1/transactions/{id}
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := s.repo.GetTransaction(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: tx, FetchedAt: time.Now().UTC()})
}

// handleWallet handles GET /api/v1/wallets/{id}. The encrypted key is never
// serialized.
func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wallet, err := s.repo.GetWallet(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: wallet, FetchedAt: time.Now().UTC()})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if oerrors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger.Error().Err(err).Msg("query failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
