package http

import (
	"log/slog"
	"net/http"
	"time"

	"induswealth/internal/middleware/auth"
)

type bankItemResponse struct {
	ID          int64  `json:"id"`
	Institution string `json:"institution"`
	CreatedAt   string `json:"created_at"`
}

type linkItemRequest struct {
	AccessToken string `json:"access_token"`
	Institution string `json:"institution"`
}

func (s *Server) handleListBankItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, err := s.store.ListBankItems(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Bank item list failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list linked banks")
		return
	}

	resp := make([]bankItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, bankItemResponse{
			ID:          item.ID,
			Institution: item.Institution,
			CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLinkBankItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req linkItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusUnprocessableEntity, "access_token is required")
		return
	}

	item, err := s.store.CreateBankItem(r.Context(), userID, req.AccessToken, sanitizeInput(req.Institution))
	if err != nil {
		slog.ErrorContext(r.Context(), "Bank item link failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to link bank")
		return
	}

	// Kick off an initial refresh so debts show up without waiting for the
	// periodic sync.
	if s.publisher != nil {
		if err := s.publisher.PublishLiabilitySync(r.Context(), userID, item.ID); err != nil {
			slog.WarnContext(r.Context(), "Initial sync publish failed", "error", err, "user_id", userID, "item_id", item.ID)
		}
	}

	writeJSON(w, http.StatusCreated, bankItemResponse{
		ID:          item.ID,
		Institution: item.Institution,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	items, err := s.store.ListBankItems(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Bank item list failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list linked banks")
		return
	}

	queued := 0
	for _, item := range items {
		if err := s.publisher.PublishLiabilitySync(r.Context(), userID, item.ID); err != nil {
			slog.ErrorContext(r.Context(), "Sync publish failed", "error", err, "user_id", userID, "item_id", item.ID)
			continue
		}
		queued++
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}
