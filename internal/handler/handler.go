// Package handler provides HTTP request handlers for the REST API.
package handler

// Version is the application version.
const Version = "1.0.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// MessageResponse carries a human-readable confirmation for mutations
// that do not echo the document back.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterResponse confirms a user registration. It deliberately has no
// credential fields.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
