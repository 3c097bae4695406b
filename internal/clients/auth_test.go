package clients

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brenofariasdasilva/mbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenServer(t *testing.T, hits *int, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))

		*hits++
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestAuthenticator_Authenticate(t *testing.T) {
	t.Run("success stores token with buffered expiry", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusOK,
			`{"access_token":"tok123","token_type":"Bearer","expires_in":3600}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		now := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
		a.now = func() time.Time { return now }

		require.NoError(t, a.Authenticate(context.Background()))
		assert.Equal(t, "tok123", a.accessToken)
		assert.Equal(t, "Bearer", a.tokenType)
		assert.Equal(t, now.Add(3600*time.Second-expiryBuffer), a.tokenExpiry)
	})

	t.Run("sends basic auth credentials", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
		}))
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		require.NoError(t, a.Authenticate(context.Background()))

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		assert.Equal(t, expected, gotAuth)
	})

	t.Run("failure clears stored token and returns AuthError", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusUnauthorized, `{"error":"invalid_client"}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		a.accessToken = "stale"
		a.tokenExpiry = time.Now().Add(time.Hour)

		err := a.Authenticate(context.Background())
		require.Error(t, err)

		var authErr *domain.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Empty(t, a.accessToken)
	})

	t.Run("defaults for missing expires_in and token_type", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusOK, `{"access_token":"tok"}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		now := time.Now()
		a.now = func() time.Time { return now }

		require.NoError(t, a.Authenticate(context.Background()))
		assert.Equal(t, "Bearer", a.tokenType)
		assert.Equal(t, now.Add(defaultExpiresIn*time.Second-expiryBuffer), a.tokenExpiry)
	})
}

func TestAuthenticator_EnsureAuthenticated(t *testing.T) {
	t.Run("idempotent while token is valid", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusOK, `{"access_token":"tok","expires_in":3600}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())

		require.NoError(t, a.EnsureAuthenticated(context.Background()))
		require.NoError(t, a.EnsureAuthenticated(context.Background()))
		require.NoError(t, a.EnsureAuthenticated(context.Background()))
		assert.Equal(t, 1, hits)
	})

	t.Run("re-authenticates when token expired", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusOK, `{"access_token":"tok","expires_in":3600}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		now := time.Now()
		a.now = func() time.Time { return now }

		require.NoError(t, a.EnsureAuthenticated(context.Background()))
		require.Equal(t, 1, hits)

		// the buffered expiry is the exact invalidation instant
		now = a.tokenExpiry
		require.NoError(t, a.EnsureAuthenticated(context.Background()))
		assert.Equal(t, 2, hits)
	})

	t.Run("token valid strictly before buffered expiry", func(t *testing.T) {
		a := NewAuthenticator("key", "secret", "http://localhost", zap.NewNop())
		expiry := time.Date(2026, 2, 16, 13, 0, 0, 0, time.UTC)
		a.accessToken = "tok"
		a.tokenExpiry = expiry

		a.now = func() time.Time { return expiry.Add(-time.Nanosecond) }
		assert.True(t, a.tokenValid())

		a.now = func() time.Time { return expiry }
		assert.False(t, a.tokenValid())
	})
}

func TestAuthenticator_AuthHeader(t *testing.T) {
	t.Run("returns composed header", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusOK, `{"access_token":"tok123","token_type":"Bearer","expires_in":3600}`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		header, err := a.AuthHeader(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok123", header)
	})

	t.Run("fails instead of returning an empty header", func(t *testing.T) {
		hits := 0
		srv := newTokenServer(t, &hits, http.StatusInternalServerError, `oops`)
		defer srv.Close()

		a := NewAuthenticator("key", "secret", srv.URL, zap.NewNop())
		header, err := a.AuthHeader(context.Background())
		require.Error(t, err)
		assert.Empty(t, header)
	})
}

func TestAuthenticator_Invalidate(t *testing.T) {
	a := NewAuthenticator("key", "secret", "http://localhost", zap.NewNop())
	a.accessToken = "tok"
	a.tokenExpiry = time.Now().Add(time.Hour)

	a.Invalidate()
	assert.False(t, a.tokenValid())
}
