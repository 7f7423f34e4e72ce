package handlers

import (
	"log/slog"
	"net/http"

	"github.com/farmercorner/motor-dashboard/internal/api/middleware"
	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/service"
)

type PhaseHandler struct {
	control  *service.ControlService
	activity *service.ActivityService
	log      *slog.Logger
}

func NewPhaseHandler(control *service.ControlService, activity *service.ActivityService, log *slog.Logger) *PhaseHandler {
	return &PhaseHandler{control: control, activity: activity, log: log}
}

func (h *PhaseHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	detection, err := h.control.CheckPhase(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, detection)
}

func (h *PhaseHandler) History(w http.ResponseWriter, r *http.Request) {
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

	detections, err := h.activity.RecentPhaseDetections(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if detections == nil {
		detections = []*domain.PhaseDetection{}
	}
	writeJSON(w, http.StatusOK, detections)
}
