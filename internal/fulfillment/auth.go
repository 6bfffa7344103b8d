package fulfillment

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuth returns a handler that authenticates each request against
// username and a bcrypt hashed password before calling next.
func BasicAuth(username, hashedPassword string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="fulfillment"`)
			utils.WriteError(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		if subtle.ConstantTimeCompare([]byte(u), []byte(username)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="fulfillment"`)
			utils.WriteError(w, http.StatusForbidden, "invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(p)); err != nil {
			logger.Warn("fulfillment basic auth rejected", "user", u, "error", err)
			w.Header().Set("WWW-Authenticate", `Basic realm="fulfillment"`)
			utils.WriteError(w, http.StatusForbidden, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}
