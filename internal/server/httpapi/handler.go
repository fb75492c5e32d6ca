package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/helioview/portal/internal/common"
	"github.com/helioview/portal/internal/server/authz"
	"github.com/helioview/portal/internal/server/models"
	"github.com/helioview/portal/internal/server/services"
)

// SessionCookie is the name of the HttpOnly cookie carrying the opaque
// session token.
const SessionCookie = "portal_session"

const resetAck = "if the address is registered, a reset link has been sent"

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Recoverer(s.logger), RequestLogger(s.logger))

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/session", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/forgot", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/reset", s.handleResetTokenValid).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/reset", s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/api/password", s.handleChangePassword).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/users/active", s.handleSetUserActive).Methods(http.MethodPut)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unknown errors become an opaque 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrCurrentPasswordIncorrect),
		errors.Is(err, services.ErrInvalidOrExpiredToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, authz.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// sessionUser resolves the caller from the session cookie. A missing
// cookie and a dead token answer identically.
func (s *Server) sessionUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusUnauthorized, services.ErrInvalidOrExpiredToken.Error())
		return nil, false
	}
	user, err := s.svc.UserBySession(r.Context(), c.Value)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return user, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	summary, err := s.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	summary, token, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		s.svc.Logout(r.Context(), c.Value)
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": resetAck})
}

func (s *Server) handleResetTokenValid(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	writeJSON(w, http.StatusOK, map[string]bool{
		"valid": s.svc.ResetTokenValid(r.Context(), token),
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Name       string `json:"name"`
		Department string `json:"department"`
		Location   string `json:"location"`
	}
	if !decode(w, r, &req) {
		return
	}
	summary, err := s.svc.UpdateProfile(r.Context(), user.Email, req.Name, req.Department, req.Location)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.ChangePassword(r.Context(), user.Email, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	if err := authz.Require(user, models.RoleDirector); err != nil {
		writeServiceError(w, err)
		return
	}
	list, err := s.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	user, ok := s.sessionUser(w, r)
	if !ok {
		return
	}
	if err := authz.Require(user, models.RoleDirector); err != nil {
		writeServiceError(w, err)
		return
	}
	var req struct {
		Email  string `json:"email"`
		Active bool   `json:"active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.SetUserActive(r.Context(), req.Email, req.Active); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
