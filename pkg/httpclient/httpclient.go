package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// TokenEnvVar holds the optional GitHub token used for API and download requests.
const TokenEnvVar = "GITHUB_TOKEN"

// UserAgent is sent with every request.
var UserAgent = "sqlcmd-install"

// NewGitHubClient creates an HTTP client configured for GitHub requests,
// authenticated with GITHUB_TOKEN when it is set.
func NewGitHubClient() *http.Client {
	return NewClient(os.Getenv(TokenEnvVar), 0)
}

// NewClient creates an HTTP client that adds token as a bearer credential on
// GitHub hosts only. A zero timeout means no timeout.
func NewClient(token string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &gitHubTransport{
			Base:  http.DefaultTransport,
			Token: token,
		},
	}
}

// gitHubTransport is a RoundTripper that adds GitHub authentication
type gitHubTransport struct {
	Base  http.RoundTripper
	Token string
}

// RoundTrip implements the http.RoundTripper interface
func (t *gitHubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req2 := req.Clone(req.Context())

	if req2.Header.Get("User-Agent") == "" {
		req2.Header.Set("User-Agent", UserAgent)
	}
	if t.Token != "" && req2.Header.Get("Authorization") == "" && IsGitHubURL(req2.URL) {
		req2.Header.Set("Authorization", "Bearer "+t.Token)
	}

	return t.Base.RoundTrip(req2)
}

// IsGitHubURL reports whether u points at github.com or one of its
// API and content hosts.
func IsGitHubURL(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, domain := range []string{"github.com", "githubusercontent.com"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
