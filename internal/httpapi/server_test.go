package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	accountd "github.com/aonyx-labs/accountd"
	"github.com/aonyx-labs/accountd/stores/memory"
)

const (
	testPassword = "Az3#Za3@"
	weakPassword = "password"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := accountd.Config{
		Password: accountd.PasswordConfig{
			Pepper:      "httpapi-test-pepper",
			Memory:      8192,
			Time:        1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   16,
		},
		Token: accountd.TokenConfig{
			Secret:     "httpapi-test-secret",
			AccessTTL:  5 * time.Minute,
			RefreshTTL: time.Hour,
		},
		Lockout: accountd.LockoutConfig{
			AttemptWindow:    300 * time.Second,
			FailureThreshold: 5,
		},
		Session: accountd.SessionConfig{RedisPrefix: "tk:"},
	}

	engine, err := accountd.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memory.NewStore()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(engine, log, Config{
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}).Router())
	t.Cleanup(srv.Close)

	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func signUp(t *testing.T, srv *httptest.Server, email string, permission uint8) userBody {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/accounts/sign-up", signUpBody{
		Email:      email,
		Password:   testPassword,
		Permission: permission,
		FamilyName: "Doe",
		GivenName:  "Jane",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user userBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	return user
}

func signIn(t *testing.T, srv *httptest.Server, email string) (tokenPairBody, *http.Response) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/accounts/sign-in", signInBody{Email: email, Password: testPassword})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pair tokenPairBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	return pair, resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignUpAndDuplicate(t *testing.T) {
	srv := newTestServer(t)

	user := signUp(t, srv, "jane@example.com", 0)
	require.Equal(t, "jane@example.com", user.Email)
	require.True(t, user.Active)
	require.Equal(t, uint8(accountd.PermissionGeneral), user.Permission)

	resp := postJSON(t, srv.URL+"/api/accounts/sign-up", signUpBody{
		Email:    "jane@example.com",
		Password: testPassword,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/accounts/sign-up", signUpBody{
		Email:    "weak@example.com",
		Password: weakPassword,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignUpRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/accounts/sign-up", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignInSetsCookiesAndIssuesTokens(t *testing.T) {
	srv := newTestServer(t)
	user := signUp(t, srv, "jane@example.com", 0)

	pair, resp := signIn(t, srv, "jane@example.com")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.HttpOnly
	}
	require.True(t, names["access"])
	require.True(t, names["refresh"])

	// The issued access token opens the self-only detail route.
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/accounts/users/%s", srv.URL, user.ID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	detail, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer detail.Body.Close()
	require.Equal(t, http.StatusOK, detail.StatusCode)

	var got userBody
	require.NoError(t, json.NewDecoder(detail.Body).Decode(&got))
	require.Equal(t, user.ID, got.ID)
	require.NotNil(t, got.LastSignInAt)
}

func TestSignInWrongPasswordIsUniform(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "jane@example.com", 0)

	resp := postJSON(t, srv.URL+"/api/accounts/sign-in", signInBody{Email: "jane@example.com", Password: "Wrong#1a"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "invalid email address or password", body.Error)

	// Unknown email gets byte-identical treatment.
	resp = postJSON(t, srv.URL+"/api/accounts/sign-in", signInBody{Email: "ghost@example.com", Password: testPassword})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var ghost errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ghost))
	require.Equal(t, body.Error, ghost.Error)
}

func TestListUsersIsAdminOnly(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "general@example.com", uint8(accountd.PermissionGeneral))
	signUp(t, srv, "admin@example.com", uint8(accountd.PermissionAdmin))

	generalPair, _ := signIn(t, srv, "general@example.com")
	adminPair, _ := signIn(t, srv, "admin@example.com")

	listURL := srv.URL + "/api/accounts/users"

	req, _ := http.NewRequest(http.MethodGet, listURL, nil)
	req.Header.Set("Authorization", "Bearer "+generalPair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, listURL, nil)
	req.Header.Set("Authorization", "Bearer "+adminPair.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []userBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 2)
}

func TestGetUserIsSelfOnly(t *testing.T) {
	srv := newTestServer(t)
	signUp(t, srv, "one@example.com", 0)
	other := signUp(t, srv, "two@example.com", 0)

	pair, _ := signIn(t, srv, "one@example.com")

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/accounts/users/%s", srv.URL, other.ID), nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSignOutRevokesSession(t *testing.T) {
	srv := newTestServer(t)
	user := signUp(t, srv, "jane@example.com", 0)
	pair, _ := signIn(t, srv, "jane@example.com")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/accounts/sign-out", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/accounts/users/%s", srv.URL, user.ID), nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
