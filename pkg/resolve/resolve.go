// Package resolve turns "latest" into a concrete release tag.
package resolve

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/google/go-github/v72/github"
	"github.com/pkg/errors"
)

// Resolver looks up release tags through the GitHub API.
type Resolver struct {
	Client *github.Client
}

// New creates a Resolver on top of httpClient, which is expected to carry
// GitHub authentication (see httpclient.NewGitHubClient).
func New(httpClient *http.Client) *Resolver {
	return &Resolver{Client: github.NewClient(httpClient)}
}

// IsLatest reports whether version asks for the newest release.
func IsLatest(version string) bool {
	return version == "" || version == "latest"
}

// ResolveVersion returns version unchanged unless it is empty or "latest",
// in which case the newest published release tag of repo is returned.
// Repositories without a "latest" release fall back to the most recent
// release in the listing, which may be a pre-release.
func (r *Resolver) ResolveVersion(ctx context.Context, repo, version string) (string, error) {
	if !IsLatest(version) {
		return version, nil
	}

	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("invalid repository format: %s", repo)
	}

	log.Info("checking GitHub for latest tag")

	release, resp, err := r.Client.Repositories.GetLatestRelease(ctx, owner, name)
	if err == nil {
		if release.GetTagName() == "" {
			return "", errors.New("no tag_name found in GitHub response")
		}
		return release.GetTagName(), nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return "", errors.Wrap(err, "failed to fetch latest release")
	}

	log.Debugf("no latest release for %s, listing releases", repo)
	releases, _, err := r.Client.Repositories.ListReleases(ctx, owner, name, &github.ListOptions{PerPage: 1})
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch releases")
	}
	if len(releases) == 0 || releases[0].GetTagName() == "" {
		return "", fmt.Errorf("no releases found for %s", repo)
	}
	return releases[0].GetTagName(), nil
}
