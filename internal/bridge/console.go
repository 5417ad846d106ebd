package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/moodysaroha/postboy/internal/notify"
)

var (
	titleStyles = map[notify.Severity]lipgloss.Style{
		notify.SeverityInfo:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		notify.SeveritySuccess: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		notify.SeverityWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		notify.SeverityError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	detailStyle  = lipgloss.NewStyle().Faint(true)
	defaultStyle = lipgloss.NewStyle().Underline(true)
)

// Console presents notifications on a terminal. It is the fallback when no
// UI context is attached. Decisions are read as a button number from in;
// without a terminal they resolve to no reply, which defers.
type Console struct {
	out         io.Writer
	in          io.Reader
	interactive bool

	mu        sync.Mutex
	startOnce sync.Once
	lines     chan string
}

// NewConsole returns a Console on stdin/stdout.
func NewConsole() *Console {
	return NewConsoleWith(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

// NewConsoleWith returns a Console reading from in and writing to out.
func NewConsoleWith(in io.Reader, out io.Writer, interactive bool) *Console {
	return &Console{
		out:         out,
		in:          in,
		interactive: interactive,
		lines:       make(chan string),
	}
}

// Present renders msg and, for decisions on an interactive console, reads
// the user's choice.
func (c *Console) Present(ctx context.Context, msg notify.Message) (*notify.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := notify.PromptFor(msg)
	if p.Silent {
		fmt.Fprintln(c.out, detailStyle.Render(p.Message))
		return nil, nil
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, titleStyles[p.Severity].Render(p.Title))
	fmt.Fprintln(c.out, p.Message)
	if p.Detail != "" {
		fmt.Fprintln(c.out, detailStyle.Render(p.Detail))
	}

	if !msg.Type.NeedsDecision() {
		return nil, nil
	}
	if !c.interactive {
		fmt.Fprintf(c.out, "Not a terminal, choosing %q.\n", p.Buttons[notify.ButtonDefer])
		return nil, nil
	}

	for {
		fmt.Fprintf(c.out, "%s [%d]: ", renderChoices(p), p.Default)
		line, err := c.readLine(ctx)
		if err != nil {
			fmt.Fprintln(c.out)
			return nil, err
		}

		index, ok := parseChoice(line, p)
		if ok {
			return notify.NewReply(index, p.Buttons), nil
		}
		fmt.Fprintf(c.out, "Enter a number between 0 and %d.\n", len(p.Buttons)-1)
	}
}

func renderChoices(p notify.Prompt) string {
	parts := make([]string, len(p.Buttons))
	for i, label := range p.Buttons {
		if i == p.Default {
			label = defaultStyle.Render(label)
		}
		parts[i] = fmt.Sprintf("%d) %s", i, label)
	}
	return strings.Join(parts, "  ")
}

func parseChoice(line string, p notify.Prompt) (int, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return p.Default, true
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 || n >= len(p.Buttons) {
		return 0, false
	}
	return n, true
}

// readLine waits for the next input line. A single reader goroutine feeds
// lines so an abandoned prompt does not lose input.
func (c *Console) readLine(ctx context.Context) (string, error) {
	c.startOnce.Do(func() {
		go func() {
			defer close(c.lines)
			scanner := bufio.NewScanner(c.in)
			for scanner.Scan() {
				c.lines <- scanner.Text()
			}
		}()
	})

	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
