package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"induswealth/internal/middleware/auth"
)

func (s *Server) handleSpendingSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	if year < 1970 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	key := fmt.Sprintf("spending:%d:%d-%02d", userID, year, month)
	if summary, found := s.spendingCache.Get(key); found {
		slog.DebugContext(r.Context(), "Spending cache hit", "user_id", userID, "year", year, "month", month)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := s.store.MonthlySpending(r.Context(), userID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Spending summary failed", "error", err, "user_id", userID, "year", year, "month", month)
		writeError(w, http.StatusInternalServerError, "failed to load spending summary")
		return
	}

	s.spendingCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}
