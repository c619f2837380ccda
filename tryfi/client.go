package tryfi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultHost is the production tryfi.com API host.
	DefaultHost = "https://api.tryfi.com"

	loginPath   = "/auth/login"
	graphqlPath = "/graphql"

	defaultTimeout = 30 * time.Second
	userAgent      = "tryfi2mqtt"
)

// Client owns the authenticated session to tryfi.com: credentials, the
// cookie jar that carries continued auth, and the GraphQL transport.
// Login may be called again at any time to re-authenticate; the cookie jar
// is replaced atomically, so no remote call may be in flight concurrently
// with a re-login (callers serialize, see Household and Pet).
type Client struct {
	// Host is the API origin. Override before use for tests.
	Host string

	username string
	password string

	mu        sync.Mutex // guards session swap and identity fields
	http      *http.Client
	userID    string
	sessionID string

	log zerolog.Logger
}

// NewClient creates an unauthenticated client for the production host.
func NewClient(username, password string, log zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		Host:     DefaultHost,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		log: log.With().Str("component", "tryfi").Logger(),
	}
}

// Login posts the stored credentials to the login endpoint. On success the
// session cookies set by the response carry auth for subsequent GraphQL
// calls; userId and sessionId from the body are kept for identification.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{
		"email":    {c.username},
		"password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	// fresh jar so a re-login never mixes old and new session cookies
	jar, _ := cookiejar.New(nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.http.Jar = jar

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrLogin, err)
	}

	var parsed struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		Error     *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: status %d, undecodable body: %v", ErrLogin, res.StatusCode, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("%w: status %d: %s", ErrLogin, res.StatusCode, parsed.Error.Message)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrLogin, res.StatusCode)
	}

	c.userID = parsed.UserID
	c.sessionID = parsed.SessionID
	c.log.Debug().Str("userId", c.userID).Msg("logged in to tryfi")
	return nil
}

// UserID returns the user id reported by the last successful login.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// SessionID returns the session id reported by the last successful login.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Query issues a GraphQL read as a GET with the query in the URL.
func (c *Client) Query(ctx context.Context, queryString string) (map[string]any, error) {
	u := c.Host + graphqlPath + "?query=" + url.QueryEscape(queryString)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	return c.do(req)
}

// Mutate issues a GraphQL mutation as a POST with a JSON body.
func (c *Client) Mutate(ctx context.Context, queryString string, variables map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     queryString,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding graphql mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+graphqlPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	return c.do(req)
}

// do executes a prepared GraphQL request and classifies the response. No
// retry happens here; re-auth and retry policy live with the callers.
func (c *Client) do(req *http.Request) (map[string]any, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graphql response: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: http status %d", ErrNotAuthorized, res.StatusCode)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("graphql request failed: http status %d", res.StatusCode)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty response payload", ErrRemoteAPI)
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON (%v), first bytes %q", ErrRemoteAPI, err, firstBytes(body, 10))
	}

	if rawErrs, ok := parsed["errors"].([]any); ok && len(rawErrs) > 0 {
		msgs := make([]string, 0, len(rawErrs))
		for _, raw := range rawErrs {
			msg := "Unknown GraphQL error"
			if m, ok := raw.(map[string]any); ok {
				if s, ok := m["message"].(string); ok {
					msg = s
				}
			}
			msgs = append(msgs, msg)
		}
		joined := strings.Join(msgs, ",")
		if containsAuthIndicator(joined) {
			return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, joined)
		}
		return nil, fmt.Errorf("%w: graphql errors: %s", ErrRemoteAPI, joined)
	}

	return parsed, nil
}

// Substrings in GraphQL error messages that indicate an expired or rejected
// session rather than a malformed request.
var authIndicators = []string{"unauthorized", "unauthenticated", "authentication", "forbidden"}

func containsAuthIndicator(msg string) bool {
	lower := strings.ToLower(msg)
	for _, ind := range authIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func firstBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
