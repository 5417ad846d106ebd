// Package cli defines the Cobra command tree for the postboy binary. Each
// file registers one top-level command with the root command and delegates
// to the internal packages for the actual work.
package cli
