package updater

import (
	"net/http"
	"time"

	"github.com/moodysaroha/postboy/internal/branding"
	"github.com/moodysaroha/postboy/internal/config"
)

// Release represents a GitHub release.
type Release struct {
	Version   string    `json:"tag_name"`
	Name      string    `json:"name"`
	Notes     string    `json:"body"`
	Assets    []Asset   `json:"assets"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Asset represents a downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	APIURL      string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Updater talks to the release feed and installs what it finds there.
type Updater struct {
	currentVersion string
	httpClient     *http.Client
	apiBase        string
	feed           config.Feed
	pinned         string
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithFeed sets the release feed repository, visibility and credential.
func WithFeed(feed config.Feed) Option {
	return func(u *Updater) {
		u.feed = feed
	}
}

// WithVersion pins checks to the release tagged version instead of the
// latest one.
func WithVersion(version string) Option {
	return func(u *Updater) {
		u.pinned = version
	}
}

// WithAPIBase points the feed client at a different GitHub API root.
func WithAPIBase(base string) Option {
	return func(u *Updater) {
		u.apiBase = base
	}
}

// New creates an Updater with the given current version and options.
func New(currentVersion string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		httpClient:     http.DefaultClient,
		apiBase:        githubAPIBase,
		feed: config.Feed{
			Owner: branding.FeedOwner(),
			Repo:  branding.FeedRepo(),
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// CurrentVersion returns the version this updater was created with.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// HasCredential reports whether feed requests carry a bearer token.
func (u *Updater) HasCredential() bool {
	return u.feed.HasToken()
}

func (u *Updater) userAgent() string {
	return branding.CLIName() + "/" + u.currentVersion
}
