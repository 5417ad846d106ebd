// Package updater implements the self-update plumbing for the postboy binary.
// It queries a GitHub release feed (optionally private, authenticated with a
// bearer token), compares versions, downloads and verifies release archives,
// stages them for the next launch, and replaces and restarts the running
// executable. It also classifies feed failures into user-facing wording and
// keeps a small version cache that powers the startup banner.
package updater
