package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anirbandas/job-apply-agent/internal/auth"
)

type contextKey int

const claimsKey contextKey = iota

// authenticate validates the Bearer token and stores its claims in the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims, err := s.tokens.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				respondError(w, http.StatusUnauthorized, "token expired")
				return
			}
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}
