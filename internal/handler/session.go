package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/resourcehub/internal/model"
	"github.com/sakif/resourcehub/internal/service"
)

// SessionHandler handles login, logout, registration, and "who am I".
//
// The bearer token never leaves the process: the browser only learns
// whether it is logged in and, if known, as whom.
type SessionHandler struct {
	auth     *service.AuthService
	identity service.Resolver
	logger   *slog.Logger
}

func NewSessionHandler(auth *service.AuthService, identity service.Resolver, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{auth: auth, identity: identity, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	LoggedIn bool                   `json:"loggedIn"`
	Identity service.IdentitySource `json:"identity"`
	Degraded bool                   `json:"degraded"`
	User     *model.User            `json:"user,omitempty"`
}

// HandleLogin handles POST /api/session.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.Login(r.Context(), req.Username, req.Password); err != nil {
		h.logger.Warn("login failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.HandleWhoAmI(w, r)
}

// HandleLogout handles DELETE /api/session.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegister handles POST /api/register. It does not log in.
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleWhoAmI handles GET /api/session.
func (h *SessionHandler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	ident := h.identity.Resolve(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{
		LoggedIn: ident.Source != service.SourceAnonymous,
		Identity: ident.Source,
		Degraded: ident.Degraded(),
		User:     ident.User,
	})
}
