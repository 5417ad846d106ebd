package updater

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/moodysaroha/postboy/internal/branding"
)

// FailureKind is the user-facing category of a failed check.
type FailureKind int

const (
	// FailureUnclassified passes the underlying message through verbatim.
	FailureUnclassified FailureKind = iota
	// FailureCredential is a not-found answer from a private feed, caused
	// by a missing or insufficient access token.
	FailureCredential
	// FailureUnreachable is a DNS, connect or timeout class network failure.
	FailureUnreachable
)

func (k FailureKind) String() string {
	switch k {
	case FailureCredential:
		return "credential-missing-or-invalid"
	case FailureUnreachable:
		return "feed-unreachable"
	default:
		return "unclassified"
	}
}

// Failure is a classified check error ready for display.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

var unreachableIndicators = []string{
	"enotfound",
	"econnrefused",
	"etimedout",
	"enetunreach",
	"no such host",
	"connection refused",
	"network is unreachable",
	"i/o timeout",
	"deadline exceeded",
	"tls handshake timeout",
	"getaddrinfo",
}

var notFoundIndicators = []string{
	"404",
	"not found",
	"http 401",
}

// Classify rewords err for the user. hasCredential tells whether the feed
// request carried an access token, which selects between the "missing" and
// "insufficient" credential explanations.
func Classify(err error, hasCredential bool) *Failure {
	if err == nil {
		return nil
	}

	// Network indicators are matched first: "ENOTFOUND" also reads as a
	// not-found indicator.
	if isUnreachable(err) {
		return &Failure{
			Kind:    FailureUnreachable,
			Message: "Unable to reach the update server. Please check your internet connection and try again.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrReleaseNotFound) || containsAny(err.Error(), notFoundIndicators) {
		msg := fmt.Sprintf("Update server access denied. The release feed is private and no access token is configured. Set %s and try again.",
			branding.EnvVar("FEED_TOKEN"))
		if hasCredential {
			msg = "Update server access denied. The configured access token is invalid or does not have access to the release feed."
		}
		return &Failure{Kind: FailureCredential, Message: msg, Err: err}
	}

	return &Failure{Kind: FailureUnclassified, Message: err.Error(), Err: err}
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return containsAny(err.Error(), unreachableIndicators)
}

func containsAny(s string, needles []string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
