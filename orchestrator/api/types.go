package api

import "time"

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Protocols []string `json:"protocols,omitempty"`
}
