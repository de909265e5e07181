package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetHandler handles GET /leaderboard?window=weekly|monthly|overall&limit=n.
func (h *LeaderboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	window := models.WindowOverall
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		window = models.LeaderboardWindow(windowStr)
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		limit = parsed
	}

	entries, err := h.leaderboardService.GetTop(r.Context(), window, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries, "window": window}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
