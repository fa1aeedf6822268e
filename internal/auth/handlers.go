// Package auth serves the admin login endpoint.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"marketstall/internal/api"
	"marketstall/internal/apperror"
	"marketstall/internal/user"
	"marketstall/pkg/authtoken"
)

type Handlers struct {
	Users  user.Finder
	Tokens *authtoken.Issuer
	Logger *zap.Logger
	Now    func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login exchanges admin credentials for a bearer token.
func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		api.WriteServiceError(w, h.Logger, apperror.FromValidation(err))
		return
	}

	u, err := user.Authenticate(r.Context(), h.Users, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			h.Logger.Warn("Admin login refused", zap.String("username", req.Username))
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	token, exp, err := h.Tokens.Issue(u.ID, u.Username, u.Role, now)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	h.Logger.Info("Admin logged in", zap.String("user_id", u.ID), zap.String("username", u.Username))
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
		"user":      u,
	})
}
