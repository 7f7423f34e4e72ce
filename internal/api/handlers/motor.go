package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/farmercorner/motor-dashboard/internal/api/middleware"
	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/service"
)

type MotorHandler struct {
	control  *service.ControlService
	activity *service.ActivityService
	log      *slog.Logger
}

func NewMotorHandler(control *service.ControlService, activity *service.ActivityService, log *slog.Logger) *MotorHandler {
	return &MotorHandler{control: control, activity: activity, log: log}
}

type ToggleRequest struct {
	Status *bool `json:"status"`
}

type ToggleResponse struct {
	Success   bool      `json:"success"`
	Status    bool      `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type MotorStatusResponse struct {
	Status    bool       `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
}

func (h *MotorHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	var req ToggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if req.Status == nil {
		writeError(w, r, h.log, domain.NewValidationError("status", "status must be a boolean"))
		return
	}

	result, err := h.control.ToggleMotor(r.Context(), userID, *req.Status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, ToggleResponse{
		Success:   true,
		Status:    result.Status,
		Timestamp: result.Timestamp,
	})
}

func (h *MotorHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	latest, err := h.activity.LatestMotorActivity(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp := MotorStatusResponse{}
	if latest != nil {
		resp.Status = latest.Status
		resp.Timestamp = &latest.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MotorHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	activities, err := h.activity.RecentMotorActivities(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if activities == nil {
		activities = []*domain.MotorActivity{}
	}
	writeJSON(w, http.StatusOK, activities)
}
