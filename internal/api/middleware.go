package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tupakrantina/backoffice/internal/auth"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware rejects requests without a valid access token and puts
// the token's user in the request context
func authMiddleware(verifier *auth.Verifier, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				writeError(w, http.StatusServiceUnavailable, "Autenticación no configurada")
				return
			}

			token := auth.BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Sesión requerida")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected access token")
				writeError(w, http.StatusUnauthorized, "Sesión inválida o expirada")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), claims.User())))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
