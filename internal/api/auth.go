package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	headerScraperSecret = "X-Scraper-Secret"
	headerUserID        = "X-User-ID"
	headerUserRole      = "X-User-Role"

	roleAdmin = "admin"
)

type ctxKey int

const identityKey ctxKey = iota

// identity is the caller as asserted by the upstream auth gateway.
type identity struct {
	UserID string
	Role   string
}

func identityFrom(ctx context.Context) identity {
	id, _ := ctx.Value(identityKey).(identity)
	return id
}

// requireSecret rejects requests whose shared-secret header does not match.
// An empty configured secret rejects everything.
func requireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(headerScraperSecret)
			if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid scraper secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		id := identity{
			UserID: userID,
			Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole))),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// requireAdmin must run after requireUser.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()).Role != roleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
