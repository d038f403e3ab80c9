package api

import (
	"net/http"
	"strings"
	"time"

	"billingconsole/pkg/config"
	"billingconsole/pkg/session"
)

// OperatorAuth validates operator session tokens.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// In dev, if Authorization is missing, an X-Operator header keeps local
// testing simple.
func OperatorAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token := strings.TrimSpace(authz[7:])
				verified, err := session.VerifyToken(token, cfg.Auth.JWTSecret, time.Now())
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), &Operator{Subject: verified.Subject})))
				return
			}

			// Dev fallback
			if cfg.AppEnv != "prod" {
				if op := strings.TrimSpace(r.Header.Get("X-Operator")); op != "" {
					next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), &Operator{Subject: op})))
					return
				}
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
		})
	}
}
