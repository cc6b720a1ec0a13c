package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	accountd "github.com/aonyx-labs/accountd"
)

// AccessTokenCookie is the cookie the guard reads before falling back to
// the Authorization header.
const AccessTokenCookie = "access"

type tokenContentContextKey struct{}

// ContentFromContext returns the session content attached by [Guard].
func ContentFromContext(ctx context.Context) (*accountd.TokenContent, bool) {
	content, ok := ctx.Value(tokenContentContextKey{}).(*accountd.TokenContent)
	return content, ok
}

// Guard authenticates a request. The token is taken from the access cookie
// when present, otherwise from a Bearer Authorization header. A request
// carrying a malformed header is a 400; a request carrying no token, a dead
// token, or a non-access token is a 401.
func Guard(engine *accountd.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, malformed := extractToken(r)
			if malformed {
				reject(w, "malformed authorization", http.StatusBadRequest)
				return
			}
			if token == "" {
				reject(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			content, err := engine.Resolve(r.Context(), token)
			if err != nil {
				reject(w, "internal error", http.StatusInternalServerError)
				return
			}
			if content == nil {
				reject(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if content.Kind != accountd.TokenKindAccess {
				reject(w, "wrong token kind", http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContentContextKey{}, content)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows the request through only when the authenticated
// session carries the admin permission. Must run after [Guard].
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := ContentFromContext(r.Context())
		if !ok {
			reject(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if content.Permission != accountd.PermissionAdmin {
			reject(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelf allows the request through only when the route variable
// names the authenticated user. Must run after [Guard] on a gorilla/mux
// route.
func RequireSelf(varName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			content, ok := ContentFromContext(r.Context())
			if !ok {
				reject(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := uuid.Parse(mux.Vars(r)[varName])
			if err != nil {
				reject(w, "bad request", http.StatusBadRequest)
				return
			}
			if id != content.UserID {
				reject(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken prefers the access cookie, then the Authorization header.
// malformed is true only when an Authorization header exists but is not a
// well-formed Bearer value.
func extractToken(r *http.Request) (token string, malformed bool) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	const bearer = "Bearer "
	if !strings.HasPrefix(header, bearer) || header[len(bearer):] == "" {
		return "", true
	}

	return header[len(bearer):], false
}

// reject writes the rejection as the JSON error envelope the rest of the
// API uses, so guarded routes keep a single wire contract.
func reject(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
