package handlers

import (
	"context"
	"net/http"
	"strings"

	"procurement/internal/apperr"
	"procurement/models"
)

type ctxKey int

const userKey ctxKey = iota

// Authenticate resolves the bearer token to a user row and stores it on the
// request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Missing bearer token"})
			return
		}

		user, err := h.Store.GetUserByToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Message: "Invalid token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// RequireRole gates a route to one role.
func (h *Handler) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil || user.Role != role {
				h.respondError(w, apperr.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the authenticated user, or nil outside the middleware.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// WithUser puts a user on the request context; exported for handler tests.
func WithUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, user))
}
