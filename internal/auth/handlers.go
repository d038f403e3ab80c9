package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"billingconsole/internal/api"
	"billingconsole/pkg/config"
	"billingconsole/pkg/session"
)

type Handlers struct {
	Cfg config.Config
}

type loginRequest struct {
	Operator string `json:"operator"`
	Key      string `json:"key"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login exchanges the configured operator key for a session token.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid body")
		return
	}

	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing operator")
		return
	}
	if h.Cfg.Auth.OperatorKey == "" {
		api.WriteError(w, http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED", "operator key not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.Cfg.Auth.OperatorKey)) != 1 {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid operator key")
		return
	}

	now := time.Now()
	token, err := session.MintToken(operator, h.Cfg.Auth.JWTSecret, h.Cfg.Auth.SessionTTL, now)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to mint session")
		return
	}

	api.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: now.Add(h.Cfg.Auth.SessionTTL),
	})
}
