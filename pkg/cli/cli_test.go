package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestDecideCommand(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/decisions", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req decideRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.PrincipalID)
		assert.Equal(t, "viewSessions", req.Action)

		_ = json.NewEncoder(w).Encode(decideResponse{Allowed: true})
	})

	out, err := runCommand(t, "decide", "alice", "viewSessions", "--host", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "ALLOW")
}

func TestDecideCommandResourceLevel(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req decideRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Session", req.ResourceType)
		assert.Equal(t, "sess-123", req.ResourceID)

		_ = json.NewEncoder(w).Encode(decideResponse{Allowed: false})
	})

	out, err := runCommand(t, "decide", "alice", "viewResource",
		"--resource-type", "Session", "--resource-id", "sess-123", "--host", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "DENY")
}

func TestDecideCommandAPIError(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 502, "message": "policy evaluation failed",
		})
	})

	_, err := runCommand(t, "decide", "alice", "viewSessions", "--host", srv.URL)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
	assert.Contains(t, apiErr.Message, "policy evaluation failed")
}

func TestReloadCommand(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/reload", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "reloaded"})
	})

	out, err := runCommand(t, "reload", "--host", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "reloaded")
}

func TestRolesCommand(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/roles", r.URL.Path)
		_ = json.NewEncoder(w).Encode(rolesResponse{
			Roles: []string{"Admin", "User"}, DefaultRole: "User",
		})
	})

	out, err := runCommand(t, "roles", "--host", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Admin")
	assert.Contains(t, out, "User (default)")
}

func TestUserCommandJSONOutput(t *testing.T) {
	srv := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/users/alice", r.URL.Path)
		_ = json.NewEncoder(w).Encode(userResponse{
			UserID: "alice", DisplayName: "Alice", Role: "Admin",
		})
	})

	out, err := runCommand(t, "user", "alice", "--host", srv.URL, "--output", "json")
	require.NoError(t, err)

	var got userResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Admin", got.Role)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "console")
}
