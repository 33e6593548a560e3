package keycloak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/httpretry"
)

// pageSize is the fixed batch size for paginated user fetches.
const pageSize = 100

// AuthError indicates the client-credentials token exchange failed. It is
// distinct from ordinary fetch errors so callers can report it as a
// credential problem rather than a data problem.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("keycloak: authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// Client talks to the Keycloak admin API. The access token obtained from the
// token endpoint is cached on the client for the lifetime of a run; there is
// no module-level credential state, so independent clients never share
// tokens.
type Client struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string

	httpClient  *http.Client
	accessToken string
	log         *logrus.Entry
}

// NewClient builds a client from configuration. The client owns its
// connection pool; call Close when done with it.
func NewClient(cfg config.KeycloakConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &httpretry.Transport{},
		},
		log: logrus.WithField("component", "keycloak"),
	}
}

func (c *Client) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

func (c *Client) adminURL() string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, c.realm)
}

// Authenticate performs the client-credentials grant and caches the
// resulting access token on the client.
func (c *Client) Authenticate(ctx context.Context) error {
	c.log.Info("Authenticating with Keycloak")

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Err: httpretry.NewStatusError("token exchange", resp)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if token.AccessToken == "" {
		return &AuthError{Err: fmt.Errorf("token response contained no access_token")}
	}

	c.accessToken = token.AccessToken
	c.log.Info("Successfully authenticated with Keycloak")
	return nil
}

// get performs an authenticated GET against the admin API and decodes the
// JSON response into out. It authenticates lazily if no token is held yet.
func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	if c.accessToken == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("keycloak: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keycloak: %w", httpretry.NewStatusError("GET "+rawURL, resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("keycloak: decode response from %s: %w", rawURL, err)
	}
	return nil
}

// FetchUsers retrieves users in pages of 100, preserving encounter order.
// maxUsers caps the result; zero means fetch everything. A page shorter than
// the page size marks the end of the collection, so the tail page is never
// re-fetched.
func (c *Client) FetchUsers(ctx context.Context, maxUsers int) ([]User, error) {
	c.log.Info("Fetching users from Keycloak")

	var users []User
	first := 0
	for {
		query := url.Values{}
		query.Set("first", strconv.Itoa(first))
		query.Set("max", strconv.Itoa(pageSize))

		var batch []User
		if err := c.get(ctx, c.adminURL()+"/users?"+query.Encode(), &batch); err != nil {
			return nil, fmt.Errorf("fetch users: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		users = append(users, batch...)
		c.log.Debugf("Fetched %d users (total: %d)", len(batch), len(users))

		if maxUsers > 0 && len(users) >= maxUsers {
			users = users[:maxUsers]
			break
		}
		if len(batch) < pageSize {
			break
		}
		first += pageSize
	}

	c.log.Infof("Successfully fetched %d users", len(users))
	return users, nil
}

// FetchGroups retrieves all groups in the realm.
func (c *Client) FetchGroups(ctx context.Context) ([]Group, error) {
	c.log.Info("Fetching groups from Keycloak")

	var groups []Group
	if err := c.get(ctx, c.adminURL()+"/groups", &groups); err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}

	c.log.Infof("Successfully fetched %d groups", len(groups))
	return groups, nil
}

// FetchGroupMembers retrieves the member list for one group. Member emails
// are not resolved here; the caller joins member IDs against a user list.
func (c *Client) FetchGroupMembers(ctx context.Context, groupID string) ([]GroupMember, error) {
	var members []GroupMember
	if err := c.get(ctx, c.adminURL()+"/groups/"+url.PathEscape(groupID)+"/members", &members); err != nil {
		return nil, fmt.Errorf("fetch members of group %s: %w", groupID, err)
	}
	return members, nil
}

// Close releases the client's connection pool.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
