// Package bridge carries notifications from the coordinator to a UI
// context and decisions back.
//
// Channel is the in-process, single-consumer request/response pipe; Server
// exposes it over a websocket so a separate UI process can attach, and
// Client is that process's end. Console renders the same prompts on the
// terminal and Fallback selects between a UI channel and the console at
// presentation time.
package bridge
