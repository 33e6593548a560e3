package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Identity describes the caller behind a verified bearer token.
type Identity struct {
	Email string
}

// TokenVerifier checks a bearer token and returns the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// PermissionChecker decides whether a caller may trigger a sync in the
// given project.
type PermissionChecker interface {
	HasInvokerPermission(ctx context.Context, email, projectID string) (bool, error)
}

// TokenInfoVerifier validates opaque access tokens against an OAuth
// tokeninfo endpoint.
type TokenInfoVerifier struct {
	// Endpoint is the tokeninfo URL queried with ?access_token=.
	Endpoint   string
	HTTPClient *http.Client
}

// VerifyToken calls the tokeninfo endpoint and extracts the caller email.
// Tokens that are expired, malformed, or email-less are rejected.
func (v *TokenInfoVerifier) VerifyToken(ctx context.Context, token string) (Identity, error) {
	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.Endpoint+"?access_token="+token, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("tokeninfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Identity{}, fmt.Errorf("tokeninfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("token verification failed with status %d", resp.StatusCode)
	}
	if errField := gjson.GetBytes(body, "error"); errField.Exists() {
		return Identity{}, fmt.Errorf("invalid token: %s", gjson.GetBytes(body, "error_description").String())
	}

	email := gjson.GetBytes(body, "email").String()
	if email == "" {
		return Identity{}, fmt.Errorf("token does not contain email information")
	}
	return Identity{Email: email}, nil
}

// DefaultTokenInfoEndpoint is the verification endpoint used when none is
// configured.
const DefaultTokenInfoEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// AllowlistChecker grants invoker permission to a fixed set of caller
// emails. An empty allowlist grants every authenticated caller, matching
// deployments where the platform in front of the service already enforces
// invocation rights.
type AllowlistChecker struct {
	Emails map[string]bool
}

// NewAllowlistChecker builds a checker from a list of emails.
func NewAllowlistChecker(emails []string) *AllowlistChecker {
	set := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e != "" {
			set[strings.ToLower(e)] = true
		}
	}
	return &AllowlistChecker{Emails: set}
}

// HasInvokerPermission implements PermissionChecker.
func (c *AllowlistChecker) HasInvokerPermission(_ context.Context, email, _ string) (bool, error) {
	if len(c.Emails) == 0 {
		return true, nil
	}
	return c.Emails[strings.ToLower(email)], nil
}

// Authenticator composes token verification and the invoker permission
// check into HTTP middleware. The resolved project identity is cached on the
// struct after first use, never in package state.
type Authenticator struct {
	Verifier TokenVerifier
	Checker  PermissionChecker

	projectOnce sync.Once
	projectID   string
	projectErr  error
	resolve     func() (string, error)

	log *logrus.Entry
}

// NewAuthenticator builds an authenticator. resolveProject supplies the
// project identity for permission checks and is consulted once, lazily.
func NewAuthenticator(verifier TokenVerifier, checker PermissionChecker, resolveProject func() (string, error)) *Authenticator {
	return &Authenticator{
		Verifier: verifier,
		Checker:  checker,
		resolve:  resolveProject,
		log:      logrus.WithField("component", "auth"),
	}
}

func (a *Authenticator) project() (string, error) {
	a.projectOnce.Do(func() {
		a.projectID, a.projectErr = a.resolve()
	})
	return a.projectID, a.projectErr
}

type contextKey string

const identityKey contextKey = "identity"

// CallerEmail returns the authenticated caller's email, if any.
func CallerEmail(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id.Email
	}
	return ""
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth wraps a handler with the full gate: a valid token is required
// and the caller must hold the invoker permission in the resolved project.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			a.log.Warn("No authorization token provided")
			writeError(w, http.StatusUnauthorized, "unauthorized",
				"Authorization token required. Please provide a Bearer token in the Authorization header.")
			return
		}

		identity, err := a.Verifier.VerifyToken(r.Context(), token)
		if err != nil {
			a.log.WithError(err).Warn("Token verification failed")
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid authentication token")
			return
		}

		projectID, err := a.project()
		if err != nil {
			a.log.WithError(err).Error("Failed to resolve project identity")
			writeError(w, http.StatusInternalServerError, "configuration_error",
				"Server configuration error: unable to determine project identity")
			return
		}

		allowed, err := a.Checker.HasInvokerPermission(r.Context(), identity.Email, projectID)
		if err != nil {
			a.log.WithError(err).Error("Permission check failed")
			writeError(w, http.StatusInternalServerError, "authorization_error", "Failed to verify authorization")
			return
		}
		if !allowed {
			a.log.Warnf("Access denied for %s: insufficient permissions", identity.Email)
			writeError(w, http.StatusForbidden, "forbidden",
				fmt.Sprintf("Access denied. User %s does not have invoker permission in project %s.", identity.Email, projectID))
			return
		}

		a.log.Infof("Access granted for %s", identity.Email)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// OptionalAuth attaches the caller identity when a valid token is present
// but lets the request through either way.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if identity, err := a.Verifier.VerifyToken(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, identity))
			} else {
				a.log.WithError(err).Debug("Optional auth failed")
			}
		}
		next.ServeHTTP(w, r)
	})
}
