package handler

import (
	"net/http"
	"strconv"

	"account-backoffice-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	op, err := h.service.CreateDeposit(r.Context(), currentUser(r).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (h *Handler) createWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWithdrawalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	op, err := h.service.CreateWithdrawal(r.Context(), currentUser(r).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

func (h *Handler) listOperations(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	result, err := h.service.ListMyOperations(r.Context(), currentUser(r).ID,
		r.URL.Query().Get("status"), r.URL.Query().Get("type"), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getOperation(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetMyOperation(r.Context(), currentUser(r).ID, chi.URLParam(r, "operationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
