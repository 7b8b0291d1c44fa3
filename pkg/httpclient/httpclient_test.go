package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers with the Authorization and User-Agent headers it received.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			auth = "no auth"
		}
		io.WriteString(w, auth+"|"+r.Header.Get("User-Agent"))
	}))
	t.Cleanup(server.Close)
	return server
}

// redirectTransport sends every request to the test server while keeping
// the original host visible to the wrapping transport.
type redirectTransport struct {
	testServerURL string
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	newReq.URL.Host = strings.TrimPrefix(t.testServerURL, "http://")
	newReq.URL.Scheme = "http"
	return http.DefaultTransport.RoundTrip(newReq)
}

func roundTrip(t *testing.T, transport http.RoundTripper, rawURL string, header http.Header) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestGitHubTransport(t *testing.T) {
	server := echoServer(t)

	tests := []struct {
		name   string
		url    string
		token  string
		header http.Header
		want   string
	}{
		{
			name:  "GitHub download with token",
			url:   "https://github.com/microsoft/go-sqlcmd/releases/download/v1.8.0/sqlcmd-linux-amd64.tar.bz2",
			token: "ghp_testtoken123",
			want:  "Bearer ghp_testtoken123|sqlcmd-install",
		},
		{
			name:  "GitHub API with token",
			url:   "https://api.github.com/repos/microsoft/go-sqlcmd/releases/latest",
			token: "ghp_testtoken456",
			want:  "Bearer ghp_testtoken456|sqlcmd-install",
		},
		{
			name: "GitHub without token",
			url:  "https://github.com/microsoft/go-sqlcmd",
			want: "no auth|sqlcmd-install",
		},
		{
			name:  "non-GitHub host never gets the token",
			url:   "https://example.com/file.tar.gz",
			token: "ghp_testtoken789",
			want:  "no auth|sqlcmd-install",
		},
		{
			name:  "look-alike host never gets the token",
			url:   "https://github.com.evil.example/file.tar.gz",
			token: "ghp_testtoken789",
			want:  "no auth|sqlcmd-install",
		},
		{
			name:   "existing credentials and agent are preserved",
			url:    "https://github.com/test/test",
			token:  "env_token",
			header: http.Header{"Authorization": {"Bearer existing_token"}, "User-Agent": {"custom"}},
			want:   "Bearer existing_token|custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &gitHubTransport{
				Base:  &redirectTransport{server.URL},
				Token: tt.token,
			}
			assert.Equal(t, tt.want, roundTrip(t, transport, tt.url, tt.header))
		})
	}
}

func TestIsGitHubURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://github.com/owner/repo", true},
		{"https://api.github.com/repos/owner/repo", true},
		{"https://raw.githubusercontent.com/owner/repo/main/file", true},
		{"https://objects.githubusercontent.com/release-asset", true},
		{"http://GitHub.com/owner/repo", true},
		{"https://example.com/file", false},
		{"https://example.com/github.com/file", false},
		{"https://notgithub.com/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsGitHubURL(u))
		})
	}
}

func TestNewGitHubClient(t *testing.T) {
	t.Setenv(TokenEnvVar, "from_env")

	client := NewGitHubClient()
	require.NotNil(t, client)

	transport, ok := client.Transport.(*gitHubTransport)
	require.True(t, ok, "NewGitHubClient() did not set gitHubTransport")
	assert.Equal(t, http.DefaultTransport, transport.Base)
	assert.Equal(t, "from_env", transport.Token)
}
