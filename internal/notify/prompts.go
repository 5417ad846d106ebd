package notify

import (
	"fmt"

	"github.com/moodysaroha/postboy/internal/branding"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Severity selects the icon/colour of a prompt.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Prompt is the user-facing rendering of a Message. Buttons are ordered so
// that index ButtonDefer is the non-destructive choice and ButtonAction (when
// present) takes the action.
type Prompt struct {
	Severity Severity
	Title    string
	Message  string
	Detail   string
	Buttons  []string
	// Default is the index of the focused button.
	Default int
	// Silent prompts are status-line only and never block the user.
	Silent bool
}

// PromptFor maps a message to its prompt. Every UI context, the terminal UI
// and the console fallback alike, renders from this table.
func PromptFor(msg Message) Prompt {
	name := branding.DisplayName()
	d := msg.Data

	switch msg.Type {
	case TypeChecking:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "Checking for Updates",
			Message:  "Checking for updates...",
			Detail:   "You will be notified when the check is complete.",
			Buttons:  []string{"OK"},
			Silent:   true,
		}
	case TypeAvailable:
		return Prompt{
			Severity: SeveritySuccess,
			Title:    "Update Available",
			Message:  fmt.Sprintf("A new version (%s) of %s is available.", d.Version, name),
			Detail:   "Would you like to download it now?",
			Buttons:  []string{"Later", "Download Now"},
			Default:  ButtonAction,
		}
	case TypeNotAvailable:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "No Updates Available",
			Message:  fmt.Sprintf("%s is up to date!", name),
			Detail:   fmt.Sprintf("You are running the latest version (%s).", d.Version),
			Buttons:  []string{"OK"},
		}
	case TypeDownloading:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "Downloading Update",
			Message:  fmt.Sprintf("Downloading version %s...", d.Version),
			Detail:   "The update is being downloaded in the background. You will be notified when it's ready to install.",
			Buttons:  []string{"OK"},
		}
	case TypeDownloadProgress:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "Downloading Update",
			Message:  ProgressText(d),
			Buttons:  []string{"OK"},
			Silent:   true,
		}
	case TypeDownloaded:
		return Prompt{
			Severity: SeveritySuccess,
			Title:    "Update Ready",
			Message:  fmt.Sprintf("Version %s has been downloaded.", d.Version),
			Detail:   "The update will be applied when you restart the application. Would you like to restart now?",
			Buttons:  []string{"Later", "Restart Now"},
			Default:  ButtonAction,
		}
	case TypeError:
		return Prompt{
			Severity: SeverityError,
			Title:    "Update Error",
			Message:  "An error occurred while checking for updates.",
			Detail:   d.Message,
			Buttons:  []string{"OK"},
		}
	case TypeTimeout:
		return Prompt{
			Severity: SeverityWarning,
			Title:    "Update Check Timeout",
			Message:  "Update check is taking longer than expected.",
			Detail:   "The update server may be unreachable. Please check your internet connection and try again later.",
			Buttons:  []string{"OK"},
		}
	case TypeDevMode:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "Development Mode",
			Message:  "Updates are not available in development mode.",
			Buttons:  []string{"OK"},
		}
	default:
		return Prompt{
			Severity: SeverityInfo,
			Title:    "Notification",
			Message:  string(msg.Type),
			Buttons:  []string{"OK"},
			Silent:   true,
		}
	}
}

// ProgressText renders download progress with grouped byte counts,
// e.g. "Downloaded 42% (1,048,576 / 2,497,152 bytes)".
func ProgressText(d Data) string {
	if d.Total <= 0 {
		return printer.Sprintf("Downloaded %d bytes", d.Transferred)
	}
	return printer.Sprintf("Downloaded %d%% (%d / %d bytes)", int(d.Percent), d.Transferred, d.Total)
}
