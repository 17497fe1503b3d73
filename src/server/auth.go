package server

import (
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/davidgonveg/trading-advisor-sub002/src/auth"
)

// BearerAuth guards routes with a bearer token checked against a bcrypt
// hash, so the plaintext token never lives in config. An empty hash disables
// the check.
func BearerAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.WithField("remote", r.RemoteAddr).Warn("rejected API token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{Name: "api-token"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
