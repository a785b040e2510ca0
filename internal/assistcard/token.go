package assistcard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/travel-insurance-service/internal/config"
)

// tokenSafetyMargin is subtracted from the provider's stated expiry at
// cache-write time, so read-side freshness is a single comparison. A token
// handed out always has at least this much validity left.
const tokenSafetyMargin = 5 * time.Minute

// TokenManager owns the process-wide bearer credential for the provider
// API. One instance is constructed at startup and injected into the client;
// concurrent requests share it under a mutex. Redundant refreshes under
// contention are wasteful but safe: the last successful write wins.
type TokenManager struct {
	baseURL    string
	userName   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.Mutex
	token          string
	expiresAt      time.Time
	refreshCookies []*http.Cookie
}

// NewTokenManager constructs the manager. No network call happens until the
// first GetValidToken.
func NewTokenManager(cfg config.AssistcardConfig, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userName:   cfg.UserName,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		logger:     logger,
	}
}

// GetValidToken returns a bearer token with at least the safety margin of
// remaining validity. Stale tokens are refreshed via the opaque session
// cookie when one is held; if refresh fails for any reason the cache is
// discarded and a full credentials login runs instead.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return m.token, nil
	}

	if m.token != "" && len(m.refreshCookies) > 0 {
		if err := m.refreshLocked(ctx); err == nil {
			return m.token, nil
		} else {
			m.logger.Warn("token refresh failed; re-authenticating", zap.Error(err))
		}
	}

	m.clearLocked()
	if err := m.loginLocked(ctx); err != nil {
		return "", err
	}
	return m.token, nil
}

// Clear drops the cached credential. Used by tests and operational resets.
func (m *TokenManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *TokenManager) clearLocked() {
	m.token = ""
	m.expiresAt = time.Time{}
	m.refreshCookies = nil
}

func (m *TokenManager) loginLocked(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{UserName: m.userName, Password: m.password})
	if err != nil {
		return &AuthenticationError{Message: "encode login request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+pathLogin, bytes.NewReader(body))
	if err != nil {
		return &AuthenticationError{Message: "build login request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &AuthenticationError{Message: "identity provider unreachable", Err: err}
	}
	defer resp.Body.Close()

	login, err := m.decodeTokenResponse(resp, "login rejected")
	if err != nil {
		return err
	}

	m.token = login.Token
	m.expiresAt = login.Expiration.Add(-tokenSafetyMargin)
	// The session cookie echoed back is the opaque refresh handle.
	m.refreshCookies = resp.Cookies()

	m.logger.Info("authenticated with provider",
		zap.String("trace_id", resp.Header.Get("Trace-Id")),
		zap.Time("expires_at", m.expiresAt),
		zap.Bool("refresh_handle", len(m.refreshCookies) > 0),
	)
	return nil
}

func (m *TokenManager) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+pathTokenRefresh, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	for _, cookie := range m.refreshCookies {
		req.AddCookie(cookie)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	refreshed, err := m.decodeTokenResponse(resp, "refresh rejected")
	if err != nil {
		return err
	}

	// Same refresh handle retained; only the token and expiry move.
	m.token = refreshed.Token
	m.expiresAt = refreshed.Expiration.Add(-tokenSafetyMargin)

	m.logger.Info("refreshed provider token",
		zap.String("trace_id", resp.Header.Get("Trace-Id")),
		zap.Time("expires_at", m.expiresAt),
	)
	return nil
}

func (m *TokenManager) decodeTokenResponse(resp *http.Response, rejectMsg string) (*loginResponse, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthenticationError{Message: "read identity response", Err: err}
	}
	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		return nil, &AuthenticationError{Message: rejectMsg, Err: newProviderError(resp.StatusCode, env)}
	}

	var login loginResponse
	if err := json.Unmarshal(raw, &login); err != nil {
		return nil, &AuthenticationError{Message: "malformed identity response", Err: err}
	}
	if login.Token == "" || login.Expiration.IsZero() {
		return nil, &AuthenticationError{Message: "identity response missing token or expiration"}
	}
	return &login, nil
}
