package handlers

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/farmercorner/motor-dashboard/internal/api/middleware"
	"github.com/farmercorner/motor-dashboard/internal/domain"
	"github.com/farmercorner/motor-dashboard/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cookie      SessionCookie
	log         *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, cookie SessionCookie, log *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, log: log}
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
		Client:   clientInfo(r),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.cookie.set(w, result.Token)
	writeJSON(w, http.StatusOK, result.User.Public())
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// Logout clears the cookie whether or not the session could be destroyed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	h.cookie.clear(w)
	if !ok {
		writeError(w, r, h.log, domain.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), identity.Token); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return service.ClientInfo{UserAgent: r.UserAgent(), IPAddress: ip}
}
