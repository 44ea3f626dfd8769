package rest

import (
	"net/http"
	"strings"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
)

type planRequest struct {
	Mood string `json:"mood"`
}

type planResponse struct {
	Plan domain.MoodPlan `json:"plan"`
}

// Plan handles POST /plan. The caller's lease stays held for the following
// build.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Mood) == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "mood is required", errCodeInvalidRequest)
		return
	}

	plan, err := h.svc.PlanFromMood(r.Context(), user, req.Mood)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Plan: plan})
}
