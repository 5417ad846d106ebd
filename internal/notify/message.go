package notify

import (
	"context"
	"fmt"
)

// Type names a coordinator state as seen by the UI.
type Type string

const (
	TypeChecking         Type = "checking"
	TypeAvailable        Type = "available"
	TypeNotAvailable     Type = "not-available"
	TypeDownloading      Type = "downloading"
	TypeDownloadProgress Type = "download-progress"
	TypeDownloaded       Type = "downloaded"
	TypeError            Type = "error"
	TypeTimeout          Type = "timeout"
	TypeDevMode          Type = "dev-mode"
)

// Types lists every message type in display order.
var Types = []Type{
	TypeChecking,
	TypeAvailable,
	TypeNotAvailable,
	TypeDownloading,
	TypeDownloadProgress,
	TypeDownloaded,
	TypeError,
	TypeTimeout,
	TypeDevMode,
}

// Valid reports whether t is a known message type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// NeedsDecision reports whether the UI must return a button choice.
func (t Type) NeedsDecision() bool {
	return t == TypeAvailable || t == TypeDownloaded
}

// Button indexes. Index 0 is always the deferring choice and index 1 the
// action-taking one; replies are correlated by index, never by label.
const (
	ButtonDismissed = -1
	ButtonDefer     = 0
	ButtonAction    = 1
)

// Data is the type-dependent payload. Only the fields relevant to the type
// are set.
type Data struct {
	Version     string  `json:"version,omitempty"`
	Message     string  `json:"message,omitempty"`
	Percent     float64 `json:"percent,omitempty"`
	Transferred int64   `json:"transferred,omitempty"`
	Total       int64   `json:"total,omitempty"`
}

// Message is one notification sent from the coordinator to the UI.
type Message struct {
	Type Type `json:"type"`
	Data Data `json:"data"`
}

func (m Message) String() string {
	switch {
	case m.Data.Version != "":
		return fmt.Sprintf("%s(%s)", m.Type, m.Data.Version)
	case m.Data.Message != "":
		return fmt.Sprintf("%s(%q)", m.Type, m.Data.Message)
	default:
		return string(m.Type)
	}
}

// Reply is the UI's answer to a decision message. A nil *Reply means the
// prompt was dismissed or no reply was needed.
type Reply struct {
	Response int     `json:"response"`
	Button   *string `json:"button"`
}

// NewReply builds a reply for the button at index within buttons.
func NewReply(index int, buttons []string) *Reply {
	r := &Reply{Response: index}
	if index >= 0 && index < len(buttons) {
		label := buttons[index]
		r.Button = &label
	}
	return r
}

// Chose reports whether the reply selected the button at index.
func (r *Reply) Chose(index int) bool {
	return r != nil && r.Response == index
}

// Presenter shows a message and, for decision types, collects the user's
// choice. Implementations must be safe for sequential use by one caller.
type Presenter interface {
	Present(ctx context.Context, msg Message) (*Reply, error)
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, msg Message) (*Reply, error)

// Present calls f(ctx, msg).
func (f PresenterFunc) Present(ctx context.Context, msg Message) (*Reply, error) {
	return f(ctx, msg)
}

// Checking returns the message emitted when a manual check starts.
func Checking() Message { return Message{Type: TypeChecking} }

// Available returns the message announcing version.
func Available(version string) Message {
	return Message{Type: TypeAvailable, Data: Data{Version: version}}
}

// NotAvailable returns the up-to-date message for the running version.
func NotAvailable(current string) Message {
	return Message{Type: TypeNotAvailable, Data: Data{Version: current}}
}

// Downloading returns the message sent when a download starts.
func Downloading(version string) Message {
	return Message{Type: TypeDownloading, Data: Data{Version: version}}
}

// Progress returns a download progress message.
func Progress(transferred, total int64) Message {
	d := Data{Transferred: transferred}
	// An unknown length (-1) is left out.
	if total > 0 {
		d.Total = total
		d.Percent = float64(transferred) * 100 / float64(total)
	}
	return Message{Type: TypeDownloadProgress, Data: d}
}

// Downloaded returns the restart prompt for version.
func Downloaded(version string) Message {
	return Message{Type: TypeDownloaded, Data: Data{Version: version}}
}

// Error returns an error message carrying text as shown to the user.
func Error(text string) Message {
	return Message{Type: TypeError, Data: Data{Message: text}}
}

// Timeout returns the synthetic manual-check timeout message.
func Timeout() Message { return Message{Type: TypeTimeout} }

// DevMode returns the message shown when updates are disabled.
func DevMode() Message { return Message{Type: TypeDevMode} }
