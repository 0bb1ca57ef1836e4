package handler

import (
	"context"
	"net/http"
	"strings"

	"account-backoffice-go/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticated-user"

// currentUser returns the user attached by the authentication middleware.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

// authenticate verifies the bearer token and loads the user behind it. The
// lookup makes a blocked or deleted user lose access on their next request,
// not at token expiry.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "authorization required"})
			return
		}

		claims, err := h.service.Auth().ParseToken(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		user, err := h.service.GetProfile(r.Context(), claims.UserID)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "authorization required"})
			return
		}
		if !user.IsActive {
			writeJSON(w, http.StatusForbidden, errorResponse{Message: "account is blocked"})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin allows only administrators past.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil || user.Role != models.RoleAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Message: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
