package handler

import (
	"net/http"

	"account-backoffice-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBankingAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := h.service.CreateBankingAccount(r.Context(), currentUser(r).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.ListMyAccounts(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetMyAccount(r.Context(), currentUser(r).ID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) accountStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetMyStats(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) listMyTradingAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListMyTradingAccounts(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}
