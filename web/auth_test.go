package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharath-chandra-glean/peopleDateExporter/web"
)

func TestTokenInfoVerifier_ValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"email":"ops@example.com","scope":"openid email","expires_in":"3599"}`))
	}))
	defer server.Close()

	verifier := &web.TokenInfoVerifier{Endpoint: server.URL}
	identity, err := verifier.VerifyToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", identity.Email)
}

func TestTokenInfoVerifier_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"expired token", http.StatusBadRequest, `{"error":"invalid_token","error_description":"expired"}`},
		{"error field in 200", http.StatusOK, `{"error":"invalid_token"}`},
		{"no email", http.StatusOK, `{"scope":"openid"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			}))
			defer server.Close()

			verifier := &web.TokenInfoVerifier{Endpoint: server.URL}
			_, err := verifier.VerifyToken(context.Background(), "tok")
			assert.Error(t, err)
		})
	}
}

func TestAllowlistChecker(t *testing.T) {
	checker := web.NewAllowlistChecker([]string{"Admin@Example.com", ""})

	allowed, err := checker.HasInvokerPermission(context.Background(), "admin@example.com", "p")
	require.NoError(t, err)
	assert.True(t, allowed, "matching is case-insensitive")

	allowed, err = checker.HasInvokerPermission(context.Background(), "other@example.com", "p")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowlistChecker_EmptyAllowsAnyAuthenticatedCaller(t *testing.T) {
	checker := web.NewAllowlistChecker(nil)

	allowed, err := checker.HasInvokerPermission(context.Background(), "anyone@example.com", "p")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAuthenticator_ProjectResolvedOnce(t *testing.T) {
	calls := 0
	verifier := &fakeVerifier{identities: map[string]web.Identity{"tok": {Email: "a@example.com"}}}
	auth := web.NewAuthenticator(verifier, web.NewAllowlistChecker(nil), func() (string, error) {
		calls++
		return "proj", nil
	})

	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a@example.com", web.CallerEmail(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sync", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 1, calls, "project identity is cached on the authenticator")
}

func TestBearerTokenParsing(t *testing.T) {
	verifier := &fakeVerifier{identities: map[string]web.Identity{"tok": {Email: "a@example.com"}}}
	auth := web.NewAuthenticator(verifier, web.NewAllowlistChecker(nil), func() (string, error) {
		return "proj", nil
	})
	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"standard", "Bearer tok", http.StatusNoContent},
		{"lowercase scheme", "bearer tok", http.StatusNoContent},
		{"wrong scheme", "Basic tok", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"empty header", "", http.StatusUnauthorized},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync", nil)
			if test.header != "" {
				req.Header.Set("Authorization", test.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, test.want, rec.Code)
		})
	}
}
