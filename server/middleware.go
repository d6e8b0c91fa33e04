package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/auth"
)

// CorrelationIDHeader is echoed on every response.
const CorrelationIDHeader = "correlation-id"

// publicPaths never require the X-API-KEY.
var publicPaths = map[string]bool{
	"/health":     true,
	"/ready":      true,
	"/status":     true,
	"/metrics":    true,
	"/auth/token": true,
}

// Auth checks the X-API-KEY header on the raw source endpoints. Health
// endpoints, token issuance and the bearer protected API are exempt.
func Auth(next http.Handler, authKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-KEY")
		if key == "" || key != authKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CorrelationID propagates the caller's correlation id, or mints one.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(CorrelationIDHeader, id)
		}
		w.Header().Set(CorrelationIDHeader, id)
		logrus.WithFields(logrus.Fields{
			"method":         r.Method,
			"path":           r.URL.Path,
			"correlation_id": id,
		}).Debug("request")
		next.ServeHTTP(w, r)
	})
}

// bearer protects the API with tokens from POST /auth/token when an issuer
// with users is configured.
func (s *Server) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Issuer.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.Issuer.Verify(token)
		if err != nil {
			detail := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				detail = "Token expired"
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, detail)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user":           user,
			"correlation_id": r.Header.Get(CorrelationIDHeader),
		}).Debug("authenticated")
		next.ServeHTTP(w, r)
	})
}
