package handler

import (
	"net/http"

	"account-backoffice-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetAdminStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Users ---

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("search"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) userDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetUserDetails(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted"})
}

func (h *Handler) adminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.AdminCreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.AdminCreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.SetUserActive(r.Context(), chi.URLParam(r, "userID"), req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) setUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor := currentUser(r)
	user, err := h.service.SetUserRole(r.Context(), actor.ID, chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) setUserPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.SetUserPassword(r.Context(), chi.URLParam(r, "userID"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}

// --- Operations ---

func (h *Handler) adminListOperations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	query := r.URL.Query()
	result, err := h.service.ListAllOperations(r.Context(),
		query.Get("userId"), query.Get("status"), query.Get("type"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) adminGetOperation(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetOperationDetails(r.Context(), chi.URLParam(r, "operationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) updateOperationStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOperationStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	op, err := h.service.UpdateOperationStatus(r.Context(), chi.URLParam(r, "operationID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *Handler) processDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessDepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	op, err := h.service.ProcessDeposit(r.Context(), chi.URLParam(r, "operationID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

func (h *Handler) deleteOperation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOperation(r.Context(), chi.URLParam(r, "operationID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Operation deleted"})
}

// --- Banking accounts ---

func (h *Handler) updateBankingAccount(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateBankingAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.UpdateBankingAccount(r.Context(), chi.URLParam(r, "accountID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Trading accounts ---

func (h *Handler) listTradingAccounts(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	query := r.URL.Query()
	result, err := h.service.ListTradingAccounts(r.Context(),
		query.Get("search"), query.Get("currency"), query.Get("status"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createTradingAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTradingAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.service.CreateTradingAccount(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) getTradingAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetTradingAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) updateTradingAccount(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTradingAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.UpdateTradingAccount(r.Context(), chi.URLParam(r, "accountID"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) setTradingAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.service.SetTradingAccountStatus(r.Context(), chi.URLParam(r, "accountID"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) deleteTradingAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTradingAccount(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Trading account deleted"})
}

// --- Profit records ---

func (h *Handler) listProfits(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.service.ListProfits(r.Context(), r.URL.Query().Get("search"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createProfit(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProfitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	profit, err := h.service.CreateProfit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profit)
}

func (h *Handler) deleteProfit(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProfit(r.Context(), chi.URLParam(r, "profitID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Profit record deleted"})
}
