package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"induswealth/internal/core"
	"induswealth/internal/middleware/auth"
	"induswealth/internal/services"
	"induswealth/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type debtListResponse struct {
	TotalDebt           float64               `json:"total_debt"`
	TotalMinimumPayment float64               `json:"total_minimum_payment"`
	DebtCount           int                   `json:"debt_count"`
	Debts               []services.DebtDetail `json:"debts"`
}

type customDebtRequest struct {
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	APR            decimal.Decimal `json:"apr"`
	MinimumPayment decimal.Decimal `json:"minimum_payment"`
	DebtType       string          `json:"debt_type"`
}

type aprOverrideRequest struct {
	APR decimal.Decimal `json:"apr"`
}

// debtSources loads the three debt inputs for a user.
func (s *Server) debtSources(ctx context.Context, userID int64) ([]core.AggregatedLiability, []core.CustomDebt, map[string]decimal.Decimal, error) {
	liabilities, err := s.store.ListLiabilities(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	custom, err := s.store.ListCustomDebts(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	overrides, err := s.store.APROverrides(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	return liabilities, custom, overrides, nil
}

func (s *Server) compareForUser(ctx context.Context, userID int64, extra decimal.Decimal) (services.StrategyComparisonReport, error) {
	liabilities, custom, overrides, err := s.debtSources(ctx, userID)
	if err != nil {
		return services.StrategyComparisonReport{}, err
	}
	return s.comparator.Compare(liabilities, custom, overrides, extra)
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := s.compareForUser(r.Context(), userID, decimal.Zero)
	if err != nil {
		slog.ErrorContext(r.Context(), "Debt list failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load debts")
		return
	}

	writeJSON(w, http.StatusOK, debtListResponse{
		TotalDebt:           report.TotalDebt,
		TotalMinimumPayment: report.TotalMinimumPayment,
		DebtCount:           report.DebtCount,
		Debts:               report.Debts,
	})
}

func (s *Server) handlePayoffComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	extra := decimal.Zero
	if v := strings.TrimSpace(r.URL.Query().Get("extra_payment")); v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid extra_payment")
			return
		}
		if parsed.IsNegative() {
			writeError(w, http.StatusBadRequest, "extra_payment cannot be negative")
			return
		}
		extra = parsed
	}

	report, err := s.compareForUser(r.Context(), userID, extra)
	if err != nil {
		slog.ErrorContext(r.Context(), "Payoff comparison failed", "error", err, "user_id", userID, "extra_payment", extra.String())
		writeError(w, http.StatusInternalServerError, "failed to run payoff comparison")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCreateCustomDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req customDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	debt := core.CustomDebt{
		ID:             uuid.NewString(),
		Name:           sanitizeInput(req.Name),
		Balance:        req.Balance,
		APR:            req.APR,
		MinimumPayment: req.MinimumPayment,
		Type:           core.NormalizeDebtType(req.DebtType),
	}
	if err := validateCustomDebt(debt); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.CreateCustomDebt(r.Context(), userID, debt); err != nil {
		slog.ErrorContext(r.Context(), "Custom debt create failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to save debt")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": debt.ID})
}

func (s *Server) handleUpdateCustomDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing debt id")
		return
	}

	var req customDebtRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	debt := core.CustomDebt{
		ID:             id,
		Name:           sanitizeInput(req.Name),
		Balance:        req.Balance,
		APR:            req.APR,
		MinimumPayment: req.MinimumPayment,
		Type:           core.NormalizeDebtType(req.DebtType),
	}
	if err := validateCustomDebt(debt); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateCustomDebt(r.Context(), userID, debt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debt not found")
			return
		}
		slog.ErrorContext(r.Context(), "Custom debt update failed", "error", err, "user_id", userID, "debt_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update debt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCustomDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing debt id")
		return
	}

	if err := s.store.DeleteCustomDebt(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debt not found")
			return
		}
		slog.ErrorContext(r.Context(), "Custom debt delete failed", "error", err, "user_id", userID, "debt_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete debt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAPROverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID := r.PathValue("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account id")
		return
	}

	var req aprOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APR.IsNegative() {
		writeError(w, http.StatusUnprocessableEntity, "apr cannot be negative")
		return
	}

	if err := s.store.SetAPROverride(r.Context(), userID, accountID, req.APR); err != nil {
		slog.ErrorContext(r.Context(), "APR override failed", "error", err, "user_id", userID, "account_id", accountID)
		writeError(w, http.StatusInternalServerError, "failed to save APR override")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateCustomDebt(d core.CustomDebt) error {
	if d.Name == "" {
		return core.ErrEmptyName
	}
	if d.Balance.IsNegative() {
		return core.ErrNegativeBalance
	}
	if d.APR.IsNegative() {
		return core.ErrNegativeAPR
	}
	if d.MinimumPayment.IsNegative() {
		return errors.New("minimum payment cannot be negative")
	}
	return nil
}
