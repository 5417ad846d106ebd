// Package coordinator drives the update-notification handshake.
//
// A Coordinator owns the single check session, the manual-check timeout and
// the download/restart flow. All state lives in a machine value that only
// the runner goroutine touches; feed results, timer expiry and user
// decisions arrive as events and are folded through step, which returns the
// next machine and the effects to carry out. Notifications are presented
// one at a time by an outbox worker so prompts never overlap, and the runner
// never waits for a reply.
package coordinator
