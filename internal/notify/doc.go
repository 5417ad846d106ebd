// Package notify defines the contract between the update coordinator and
// whatever UI context presents its notifications: the message types and
// payloads, the reply shape, the prompt wording for each type, and the wire
// frames used when the UI runs in another process.
package notify
