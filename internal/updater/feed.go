package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	githubAPIBase = "https://api.github.com"
)

// feedRequestTimeout bounds a single release lookup. Archive downloads are
// bounded only by the caller's context.
var feedRequestTimeout = 30 * time.Second

var (
	// ErrReleaseNotFound is returned when the feed answers 404. Private feeds
	// answer 404 to unauthenticated or under-privileged requests too.
	ErrReleaseNotFound = errors.New("release not found (HTTP 404)")
	// ErrRateLimited is returned when the GitHub API refuses the request.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded")
)

// CheckResult is the outcome of comparing the feed against the running build.
type CheckResult struct {
	Release   *Release
	Current   string
	Available bool
}

// Check fetches the latest release, or the pinned one, and reports whether
// it is newer than the running version.
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	var release *Release
	var err error
	if u.pinned != "" {
		release, err = u.CheckSpecificVersion(ctx, u.pinned)
	} else {
		release, err = u.CheckLatestVersion(ctx)
	}
	if err != nil {
		return nil, err
	}

	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		// A "dev" build forced into production mode is always updateable.
		if u.currentVersion != "dev" {
			return nil, fmt.Errorf("comparing versions: %w", err)
		}
		available = true
	}

	return &CheckResult{
		Release:   release,
		Current:   u.currentVersion,
		Available: available,
	}, nil
}

// CheckLatestVersion fetches the latest release from GitHub.
func (u *Updater) CheckLatestVersion(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", u.apiBase, u.feed.Owner, u.feed.Repo)
	return u.fetchRelease(ctx, url)
}

// CheckSpecificVersion fetches a release by tag from GitHub.
func (u *Updater) CheckSpecificVersion(ctx context.Context, tag string) (*Release, error) {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", u.apiBase, u.feed.Owner, u.feed.Repo, tag)
	return u.fetchRelease(ctx, url)
}

func (u *Updater) fetchRelease(ctx context.Context, url string) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, feedRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	u.authorize(req)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}
	if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode == http.StatusForbidden && rateLimited(resp.Header)) {
		return nil, ErrRateLimited
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: credential rejected (HTTP %d)", ErrReleaseNotFound, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parsing release JSON: %w", err)
	}

	// If a mirror is configured, rewrite asset download URLs.
	if u.feed.Mirror != "" {
		for i := range release.Assets {
			release.Assets[i].DownloadURL = strings.TrimRight(u.feed.Mirror, "/") + "/" + release.Assets[i].Name
			release.Assets[i].APIURL = ""
		}
	}

	return &release, nil
}

// rateLimited tells a GitHub rate limit 403 from a permission 403.
func rateLimited(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

// authorize sets the identification and credential headers on req.
func (u *Updater) authorize(req *http.Request) {
	req.Header.Set("User-Agent", u.userAgent())
	if u.feed.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.feed.Token)
	}
}
