package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	accountd "github.com/aonyx-labs/accountd"
	"github.com/aonyx-labs/accountd/middleware"
	"github.com/aonyx-labs/accountd/password"
)

const maxBodyBytes = 1 << 16

type signUpBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Permission uint8  `json:"permission,omitempty"`
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
}

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userBody struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Active       bool       `json:"active"`
	Permission   uint8      `json:"permission"`
	FamilyName   string     `json:"family_name"`
	GivenName    string     `json:"given_name"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpBody
	if !decodeJSON(w, r, &body) {
		return
	}

	permission := accountd.Permission(body.Permission)
	if body.Permission == 0 {
		permission = accountd.PermissionGeneral
	}

	user, err := s.engine.SignUp(r.Context(), accountd.SignUpRequest{
		Email:      body.Email,
		Password:   body.Password,
		Permission: permission,
		FamilyName: body.FamilyName,
		GivenName:  body.GivenName,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserBody(*user))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body signInBody
	if !decodeJSON(w, r, &body) {
		return
	}

	pair, err := s.engine.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setAuthCookie(w, middleware.AccessTokenCookie, pair.Access, s.cfg.AccessTTL)
	s.setAuthCookie(w, refreshTokenCookie, pair.Refresh, s.cfg.RefreshTTL)
	writeJSON(w, http.StatusOK, tokenPairBody{AccessToken: pair.Access, RefreshToken: pair.Refresh})
}

const refreshTokenCookie = "refresh"

// handleSignOut revokes whatever tokens the caller presents and clears the
// auth cookies. Idempotent; a missing or already-dead token is fine.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			if err := s.engine.Revoke(r.Context(), c.Value); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}
	if tok := bearerToken(r); tok != "" {
		if err := s.engine.Revoke(r.Context(), tok); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	s.setAuthCookie(w, middleware.AccessTokenCookie, "", -time.Second)
	s.setAuthCookie(w, refreshTokenCookie, "", -time.Second)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]userBody, 0, len(users))
	for _, user := range users {
		out = append(out, toUserBody(user))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["user_id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid user id"})
		return
	}

	user, err := s.engine.GetUser(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserBody(*user))
}

func (s *Server) setAuthCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeError maps engine errors to status codes. The 500 branch logs the
// cause and returns a fixed message; everything below it is safe to echo.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, password.ErrPolicy),
		errors.Is(err, accountd.ErrInvalidEmail),
		errors.Is(err, accountd.ErrInvalidPermission):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, accountd.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, accountd.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, accountd.ErrSignInRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, accountd.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

func toUserBody(user accountd.User) userBody {
	return userBody{
		ID:           user.ID,
		Email:        user.Email,
		Active:       user.Active,
		Permission:   uint8(user.Permission),
		FamilyName:   user.FamilyName,
		GivenName:    user.GivenName,
		LastSignInAt: user.LastSignInAt,
		CreatedAt:    user.CreatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
