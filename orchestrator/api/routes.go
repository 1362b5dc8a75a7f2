package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pushchain/chain-orchestrator/orchestrator/metrics"
)

// setupRoutes configures all HTTP routes for the query server
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/transactions/{id:[0-9]+}", s.handleTransaction).Methods(http.MethodGet)
	v1.HandleFunc("/wallets/{id:[0-9]+}", s.handleWallet).Methods(http.MethodGet)

	return r
}
