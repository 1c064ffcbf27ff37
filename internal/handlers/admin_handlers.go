package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tourline/tourline-accounts/internal/domain"
)

// ListAccounts handles listing accounts (admin only)
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	accounts, err := h.adminService.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	infos := make([]*domain.AccountInfo, 0, len(accounts))
	for i := range accounts {
		infos = append(infos, accounts[i].ToAccountInfo())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": infos,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetAccount handles fetching a single account (admin only)
func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID", "INVALID_INPUT")
		return
	}

	acct, err := h.adminService.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "Account not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": acct.ToAccountInfo(),
	})
}

// UpdateAccountStatus handles status transitions (admin only)
func (h *Handlers) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID", "INVALID_INPUT")
		return
	}

	var req domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	acct, err := h.adminService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "Account not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": acct.ToAccountInfo(),
	})
}

// RevokeAccountSessions handles force-logout of an account (admin only)
func (h *Handlers) RevokeAccountSessions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID", "INVALID_INPUT")
		return
	}

	count, err := h.adminService.RevokeSessions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Sessions revoked",
		"revoked": count,
	})
}
