package tryfi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("owner@example.com", "hunter2", zerolog.Nop())
	c.Host = srv.URL
	return c
}

func TestLoginSuccess(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, loginPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "owner@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc"})
		_, _ = io.WriteString(w, `{"userId":"u-1","sessionId":"s-1"}`)
	}))

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, "u-1", c.UserID())
	assert.Equal(t, "s-1", c.SessionID())
}

func TestLoginRejectedCredentials(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"wrong email or password"}}`)
	}))

	err := c.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLogin)
	assert.Contains(t, err.Error(), "wrong email or password")
}

func TestLoginUndecodableBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))

	err := c.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLogin)
}

func TestQueryHTTPAuthStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := c.Query(context.Background(), "query {}")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotAuthorized, "status %d", status)
		assert.True(t, IsAuthError(err))
	}
}

func TestQueryServerError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := c.Query(context.Background(), "query {}")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotAuthorized))
	assert.False(t, errors.Is(err, ErrRemoteAPI))
	assert.Contains(t, err.Error(), "http status 500")
}

func TestQueryEmptyBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "  \n")
	}))
	_, err := c.Query(context.Background(), "query {}")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteAPI)
	assert.Contains(t, err.Error(), "empty response payload")
}

func TestQueryInvalidJSON(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><body>oops</body></html>")
	}))
	_, err := c.Query(context.Background(), "query {}")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteAPI)
	assert.Contains(t, err.Error(), `"<html><bod"`)
}

func TestQueryGraphQLAuthError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"Authentication failed"}]}`)
	}))
	_, err := c.Query(context.Background(), "query {}")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "Authentication failed")
}

func TestQueryGraphQLErrorsJoined(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"field gone"},{"detail":"no message key"}]}`)
	}))
	_, err := c.Query(context.Background(), "query {}")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteAPI)
	assert.False(t, errors.Is(err, ErrNotAuthorized))
	assert.Contains(t, err.Error(), "field gone,Unknown GraphQL error")
}

func TestQuerySendsQueryInURL(t *testing.T) {
	var got string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, graphqlPath, r.URL.Path)
		got = r.URL.Query().Get("query")
		_, _ = io.WriteString(w, `{"data":{}}`)
	}))
	_, err := c.Query(context.Background(), "query { currentUser { id } }")
	require.NoError(t, err)
	assert.Equal(t, "query { currentUser { id } }", got)
}

func TestMutatePostsJSONBody(t *testing.T) {
	var got struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, graphqlPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{"setDeviceLed":{}}}`)
	}))

	res, err := c.Mutate(context.Background(), "mutation X { y }", map[string]any{"moduleId": "M1", "ledColorCode": 3})
	require.NoError(t, err)
	assert.Equal(t, "mutation X { y }", got.Query)
	assert.Equal(t, "M1", got.Variables["moduleId"])
	assert.EqualValues(t, 3, got.Variables["ledColorCode"])
	_, ok := res["data"]
	assert.True(t, ok)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrNotAuthorized))
	assert.True(t, IsAuthError(errors.Join(errors.New("x"), ErrNotAuthorized)))
	assert.False(t, IsAuthError(ErrRemoteAPI))
	assert.False(t, IsAuthError(nil))
}
