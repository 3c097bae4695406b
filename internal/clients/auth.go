package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"go.uber.org/zap"
)

const (
	// expiryBuffer is subtracted from the token lifetime so the token is
	// replaced before the exchange actually rejects it.
	expiryBuffer = 300 * time.Second

	defaultExpiresIn = 3600
	defaultTokenType = "Bearer"

	authTimeout = 30 * time.Second
)

// tokenResponse is the OAuth2 token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticator obtains and refreshes a bearer token through the OAuth2
// client-credentials flow. It owns the token exclusively; callers only see
// the ready-to-use Authorization header value.
type Authenticator struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	accessToken string
	tokenType   string
	tokenExpiry time.Time

	now func() time.Time
}

// NewAuthenticator creates an Authenticator for the given credentials.
func NewAuthenticator(apiKey, apiSecret, baseURL string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: authTimeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate performs the token exchange. On success the token, its type
// and its buffered expiry are stored; on any failure the stored token is
// cleared and a *domain.AuthError is returned.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	a.clearToken()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.AuthError{Reason: "failed to build token request", Err: err}
	}
	req.SetBasicAuth(a.apiKey, a.apiSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &domain.AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.AuthError{Reason: "failed to read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &domain.AuthError{
			Reason: fmt.Sprintf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return &domain.AuthError{Reason: "failed to decode token response", Err: err}
	}
	if token.AccessToken == "" {
		return &domain.AuthError{Reason: "token endpoint returned empty access token"}
	}

	if token.ExpiresIn == 0 {
		token.ExpiresIn = defaultExpiresIn
	}
	if token.TokenType == "" {
		token.TokenType = defaultTokenType
	}

	a.accessToken = token.AccessToken
	a.tokenType = token.TokenType
	a.tokenExpiry = a.now().Add(time.Duration(token.ExpiresIn)*time.Second - expiryBuffer)

	a.logger.Debug("authenticated", zap.Time("token_expiry", a.tokenExpiry))

	return nil
}

// EnsureAuthenticated re-authenticates only when there is no token or the
// token has expired. Idempotent otherwise.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) error {
	if a.tokenValid() {
		return nil
	}
	return a.Authenticate(ctx)
}

// AuthHeader returns the Authorization header value for authenticated
// requests, re-authenticating first when needed. It never returns an empty
// header without an error: an unobtainable token is an authentication
// failure, not a silent unauthenticated request.
func (a *Authenticator) AuthHeader(ctx context.Context) (string, error) {
	if err := a.EnsureAuthenticated(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", a.tokenType, a.accessToken), nil
}

// Invalidate drops the stored token so the next authenticated request
// forces a fresh token exchange. Used after the exchange rejects a token.
func (a *Authenticator) Invalidate() {
	a.clearToken()
}

func (a *Authenticator) tokenValid() bool {
	if a.accessToken == "" {
		return false
	}
	return a.now().Before(a.tokenExpiry)
}

func (a *Authenticator) clearToken() {
	a.accessToken = ""
	a.tokenType = ""
	a.tokenExpiry = time.Time{}
}
