package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/niktheblak/helvetic/pkg/auth"
)

// Authenticator rejects requests without a valid bearer token
func Authenticator(handler http.Handler, authenticator auth.Authenticator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		err := authenticator.Authenticate(r.Context(), token)
		if err != nil {
			if logger != nil {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "Rejected request", slog.String("path", r.URL.Path), slog.String("remote", r.RemoteAddr))
			}
			forbidden(w)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
