package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hylla/shopfloor/internal/auth"
)

// loginRequest is the POST `/auth/login` payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin serves POST `/auth/login`.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{Code: "service_unavailable", Message: "auth is not configured"})
		return
	}
	var req loginRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	http.SetCookie(w, h.sessionCookie(session.Token, h.auth.TokenTTL()))
	writeJSON(w, http.StatusOK, session)
}

// handleLogout serves POST `/auth/logout`.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1))
	writeNoContent(w)
}

// handleMe serves GET `/auth/me`.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// sessionCookie builds the session cookie. A negative ttl clears it.
func (h *Handler) sessionCookie(token string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl / time.Second)
	}
	return cookie
}

// handleListUsers serves GET `/users`.
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleGetUser serves GET `/users/{id}`.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleCreateUser serves POST `/users`.
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.CreateUserInput
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	user, err := h.auth.CreateUser(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleUpdateUser serves PATCH `/users/{id}`.
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch auth.UserPatch
	if err := decodeJSONBody(r.Context(), w, r, &patch); err != nil {
		writeErrorFrom(w, err)
		return
	}
	user, err := h.auth.UpdateUser(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser serves DELETE `/users/{id}`.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeNoContent(w)
}
