package assistcard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/travel-insurance-service/internal/config"
)

// identityStub fakes the provider's authentication endpoints.
type identityStub struct {
	logins    int32
	refreshes int32

	loginStatus   int
	refreshStatus int
	tokenTTL      time.Duration
	setCookie     bool
}

func (s *identityStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.logins, 1)
		if s.loginStatus >= 400 {
			w.WriteHeader(s.loginStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"traceId": "trc-login", "errorCode": "AUTH_FAILED", "message": "bad credentials",
			})
			return
		}
		if s.setCookie {
			http.SetCookie(w, &http.Cookie{Name: "ac_session", Value: "opaque-refresh-handle"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "tok-login",
			"expiration": time.Now().Add(s.tokenTTL).Format(time.RFC3339),
		})
	})
	mux.HandleFunc(pathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.refreshes, 1)
		if s.refreshStatus >= 400 {
			w.WriteHeader(s.refreshStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"traceId": "trc-refresh", "errorCode": "SESSION_EXPIRED", "message": "refresh rejected",
			})
			return
		}
		if _, err := r.Cookie("ac_session"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "tok-refreshed",
			"expiration": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stubConfig(baseURL string) config.AssistcardConfig {
	return config.AssistcardConfig{
		BaseURL:            baseURL,
		UserName:           "agency-user",
		Password:           "agency-pass",
		CountryCode:        54,
		AgencyCode:         7,
		BranchCode:         1,
		HTTPTimeoutSeconds: 5,
	}
}

func TestGetValidToken_CachesFreshToken(t *testing.T) {
	stub := &identityStub{tokenTTL: time.Hour}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	tok1, err := m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-login", tok1)

	tok2, err := m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.logins), "cached token must not trigger a second login")
}

func TestGetValidToken_ExpiryMarginForcesReauth(t *testing.T) {
	// Token expires in 2 minutes: inside the safety margin, so it must be
	// treated as stale from the moment it is cached.
	stub := &identityStub{tokenTTL: 2 * time.Minute}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	require.NoError(t, err)

	_, err = m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.logins))
}

func TestGetValidToken_RefreshesViaSessionCookie(t *testing.T) {
	stub := &identityStub{tokenTTL: 2 * time.Minute, setCookie: true}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	require.NoError(t, err)

	tok, err := m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-refreshed", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.logins))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.refreshes))
}

func TestGetValidToken_RefreshFailureFallsBackToLogin(t *testing.T) {
	stub := &identityStub{tokenTTL: 2 * time.Minute, setCookie: true, refreshStatus: http.StatusUnauthorized}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	require.NoError(t, err)

	tok, err := m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-login", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.logins))
}

func TestGetValidToken_LoginRejected(t *testing.T) {
	stub := &identityStub{loginStatus: http.StatusUnauthorized}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	require.Error(t, err)
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestGetValidToken_IdentityUnreachable(t *testing.T) {
	stub := &identityStub{tokenTTL: time.Hour}
	srv := stub.server(t)
	srv.Close()
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestClear_DropsCachedCredential(t *testing.T) {
	stub := &identityStub{tokenTTL: time.Hour}
	srv := stub.server(t)
	m := NewTokenManager(stubConfig(srv.URL), zaptest.NewLogger(t))

	_, err := m.GetValidToken(context.Background())
	require.NoError(t, err)

	m.Clear()

	_, err = m.GetValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.logins))
}
