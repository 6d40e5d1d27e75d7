package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dripq/dripq/internal/email"
	"github.com/dripq/dripq/internal/scheduler"
	"github.com/dripq/dripq/internal/store"
)

// ScheduleRequest is the request body for POST /api/schedule
type ScheduleRequest struct {
	From                string   `json:"from"`
	Subject             string   `json:"subject"`
	Body                string   `json:"body"`
	Recipients          []string `json:"recipients"`
	StartTime           string   `json:"startTime"`
	DelayBetweenSeconds *int     `json:"delayBetweenSeconds,omitempty"`
	HourlyLimit         *int     `json:"hourlyLimit,omitempty"`
}

// ScheduleResponse is the response for POST /api/schedule
type ScheduleResponse struct {
	Message string   `json:"message"`
	Count   int      `json:"count"`
	IDs     []string `json:"ids"`
}

// ListResponse wraps a list of email records
type ListResponse struct {
	Emails []*store.EmailRecord `json:"emails"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// listLimit caps how many records the list endpoints return
const listLimit = 200

// defaultDelayBetweenSeconds applies when a request omits the
// inter-recipient delay.
const defaultDelayBetweenSeconds = 2

// handleSchedule handles POST /api/schedule
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedReq, err := s.validateScheduleRequest(&req)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, err := s.scheduler.Schedule(r.Context(), schedReq)
	if err != nil {
		s.logger.Error("failed to schedule campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to schedule campaign")
		return
	}

	s.sendJSON(w, http.StatusCreated, ScheduleResponse{
		Message: "emails scheduled",
		Count:   len(ids),
		IDs:     ids,
	})
}

// validateScheduleRequest checks the request and applies defaults
func (s *Server) validateScheduleRequest(req *ScheduleRequest) (*scheduler.Request, error) {
	if !email.Valid(req.From) {
		return nil, fmt.Errorf("from must be a valid email address")
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if req.Body == "" {
		return nil, fmt.Errorf("body is required")
	}
	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	for _, rcpt := range req.Recipients {
		if !email.Valid(rcpt) {
			return nil, fmt.Errorf("invalid recipient address: %s", rcpt)
		}
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("startTime must be a valid RFC 3339 timestamp")
	}

	delaySeconds := defaultDelayBetweenSeconds
	if req.DelayBetweenSeconds != nil {
		if *req.DelayBetweenSeconds < 0 {
			return nil, fmt.Errorf("delayBetweenSeconds must not be negative")
		}
		delaySeconds = *req.DelayBetweenSeconds
	}

	hourlyLimit := s.config.RateLimit.DefaultHourlyLimit
	if req.HourlyLimit != nil {
		if *req.HourlyLimit < 1 {
			return nil, fmt.Errorf("hourlyLimit must be positive")
		}
		hourlyLimit = *req.HourlyLimit
	}

	return &scheduler.Request{
		From:         req.From,
		Subject:      req.Subject,
		Body:         req.Body,
		Recipients:   req.Recipients,
		StartTime:    startTime,
		DelayBetween: time.Duration(delaySeconds) * time.Second,
		HourlyLimit:  hourlyLimit,
	}, nil
}

// handleScheduled handles GET /api/scheduled
func (s *Server) handleScheduled(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListScheduled(r.Context(), listLimit)
	if err != nil {
		s.logger.Error("failed to list scheduled emails", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list scheduled emails")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse{Emails: records})
}

// handleSent handles GET /api/sent
func (s *Server) handleSent(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListResolved(r.Context(), listLimit)
	if err != nil {
		s.logger.Error("failed to list sent emails", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list sent emails")
		return
	}

	s.sendJSON(w, http.StatusOK, ListResponse{Emails: records})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
