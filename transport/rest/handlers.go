package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
)

type AuthService interface {
	SignInAnonymously() (string, string, error)
	VerifyToken(token string) (string, error)
}

type UserService interface {
	RegisterUsername(ctx context.Context, uid, username string) (*entity.UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*entity.UserProfile, error)
}

type handler struct {
	logger *slog.Logger
	auth   AuthService
	users  UserService
}

func newHandler(logger *slog.Logger, auth AuthService, users UserService) *handler {
	return &handler{
		logger: logger.With("component", "rest"),
		auth:   auth,
		users:  users,
	}
}

type signInResponse struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
}

// AnonymousSignIn - mints a fresh anonymous identity.
func (that *handler) AnonymousSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid, token, err := that.auth.SignInAnonymously()
	if err != nil {
		that.logger.Error("failed to sign in anonymously", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, signInResponse{UID: uid, Token: token})
}

// RegisterUsername - reserves a username for the bearer identity and
// creates its profile.
func (that *handler) RegisterUsername(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid, ok := that.bearerUID(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := that.users.RegisterUsername(r.Context(), uid, req.Username)
	switch {
	case errors.Is(err, apperror.ErrUsernameInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, apperror.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		that.logger.Error("failed to register username", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// Profile - returns the bearer identity's profile.
func (that *handler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid, ok := that.bearerUID(w, r)
	if !ok {
		return
	}

	profile, err := that.users.GetProfile(r.Context(), uid)
	if errors.Is(err, apperror.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		that.logger.Error("failed to get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (that *handler) bearerUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		writeError(w, http.StatusUnauthorized, apperror.ErrNotAuthenticated.Error())
		return "", false
	}

	uid, err := that.auth.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, apperror.ErrNotAuthenticated.Error())
		return "", false
	}

	return uid, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
