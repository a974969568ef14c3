package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/puzzle-market/internal/auth"
	"github.com/sakif/puzzle-market/internal/model"
	"github.com/sakif/puzzle-market/internal/service"
)

const maxAccountBody = 16 << 10

// UserHandler serves registration, sessions and the signed-in profile.
//
// Sessions are stateless JWTs. Login stores the token in an HttpOnly cookie
// for browsers and also returns it in the body for API clients, which send
// it back as "Authorization: Bearer <token>".
type UserHandler struct {
	users        *service.UserService
	tokens       *auth.TokenService
	cookieSecure bool
	logger       *slog.Logger
}

func NewUserHandler(users *service.UserService, tokens *auth.TokenService, cookieSecure bool, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:        users,
		tokens:       tokens,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/users
// REQUEST BODY: {"username": "...", "password": "...", "email": "...", "phoneNumber": "..."}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg service.Registration
	if err := decodeJSON(w, r, maxAccountBody, &reg); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), reg)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleLogin starts a session.
//
// HTTP: POST /api/sessions
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, maxAccountBody, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	// HttpOnly keeps the token away from page scripts; Lax keeps it off
	// cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{User: res.User, Token: res.Token})
}

// HandleLogout clears the session cookie. The token itself stays valid
// until it expires.
//
// HTTP: DELETE /api/sessions
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
// Auth: required
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe changes contact details and, with the current password,
// the password.
//
// HTTP: PATCH /api/me
// Auth: required
// REQUEST BODY: any of {"email", "phoneNumber", "newPassword", "currentPassword"}
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var patch service.ProfilePatch
	if err := decodeJSON(w, r, maxAccountBody, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
