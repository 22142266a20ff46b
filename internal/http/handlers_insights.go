package http

import (
	"log/slog"
	"net/http"

	"induswealth/internal/middleware/auth"

	"github.com/shopspring/decimal"
)

type insightResponse struct {
	Insight string `json:"insight"`
}

func (s *Server) handleDebtInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := s.compareForUser(r.Context(), userID, decimal.Zero)
	if err != nil {
		slog.ErrorContext(r.Context(), "Insight comparison failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build debt insight")
		return
	}

	insight, err := s.insights.DebtInsight(r.Context(), userID, report)
	if err != nil {
		slog.ErrorContext(r.Context(), "Insight generation failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to generate insight")
		return
	}

	writeJSON(w, http.StatusOK, insightResponse{Insight: insight})
}
