package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Response types for JSON serialization

type rootResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

type healthResponse struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	Timestamp         string `json:"timestamp"`
	AuthenticatedUser string `json:"authenticated_user,omitempty"`
}

type syncSuccessResponse struct {
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	TriggeredBy     string  `json:"triggered_by"`
	UsersSynced     int     `json:"users_synced"`
	GroupsSynced    int     `json:"groups_synced"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type syncErrorResponse struct {
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: kind, Message: message})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Service: serviceName,
		Version: "1.0.0",
		Endpoints: map[string]string{
			"health": "/health",
			"sync":   "/sync (POST)",
		},
	})
}

// handleHealth reports liveness. Authentication is optional; when a valid
// token was supplied the caller is echoed back.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "healthy",
		Service:           serviceName,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		AuthenticatedUser: CallerEmail(r.Context()),
	})
}

// handleSync runs a complete sync synchronously and reports the outcome.
// Configuration failures and sync-execution failures are reported as
// distinct error types, both as server errors.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	caller := CallerEmail(r.Context())
	s.log.Infof("Sync triggered via HTTP endpoint by user: %s", caller)

	start := time.Now().UTC()
	summary, err := s.runner.Run(r.Context())
	if err != nil {
		errType := "sync_error"
		var confErr *ConfigurationError
		if errors.As(err, &confErr) {
			errType = "configuration_error"
		}
		s.log.WithError(err).Error("Sync failed")
		writeJSON(w, http.StatusInternalServerError, syncErrorResponse{
			Status:    "error",
			ErrorType: errType,
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	end := time.Now().UTC()
	writeJSON(w, http.StatusOK, syncSuccessResponse{
		Status:          "success",
		Message:         "Data sync completed successfully",
		TriggeredBy:     caller,
		UsersSynced:     summary.UsersSynced,
		GroupsSynced:    summary.GroupsSynced,
		StartTime:       start.Format(time.RFC3339),
		EndTime:         end.Format(time.RFC3339),
		DurationSeconds: end.Sub(start).Seconds(),
	})
}
