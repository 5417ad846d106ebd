package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodysaroha/postboy/internal/bridge"
	"github.com/moodysaroha/postboy/internal/notify"
)

type presented struct {
	reply *notify.Reply
	err   error
}

type fakeSource struct {
	ch       *bridge.Channel
	consumer *bridge.Consumer
	checks   atomic.Int32
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	ch := bridge.NewChannel()
	consumer, err := ch.Attach()
	require.NoError(t, err)
	return &fakeSource{ch: ch, consumer: consumer}
}

func (s *fakeSource) Requests() <-chan *bridge.Request { return s.consumer.Requests() }

func (s *fakeSource) RequestCheck() error {
	s.checks.Add(1)
	return nil
}

// send presents msg through the channel and returns the request as the UI
// sees it, plus where the coordinator side's result will arrive.
func (s *fakeSource) send(t *testing.T, msg notify.Message) (*bridge.Request, <-chan presented) {
	t.Helper()
	out := make(chan presented, 1)
	go func() {
		reply, err := s.ch.Present(context.Background(), msg)
		out <- presented{reply, err}
	}()
	select {
	case req := <-s.Requests():
		return req, out
	case <-time.After(time.Second):
		t.Fatal("request not delivered")
		return nil, nil
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func awaitResult(t *testing.T, out <-chan presented) presented {
	t.Helper()
	select {
	case p := <-out:
		return p
	case <-time.After(time.Second):
		t.Fatal("no result")
		return presented{}
	}
}

func TestModel_DownloadDecision(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, out := src.send(t, notify.Available("2.0.0"))
	m, _ = update(t, m, requestMsg{req: req})
	require.NotNil(t, m.current)
	assert.Equal(t, notify.ButtonAction, m.focus, "action button is focused by default")
	assert.Contains(t, m.View(), "A new version (2.0.0) of PostBoy is available.")

	m, cmd := update(t, m, keyMsg("enter"))
	assert.Nil(t, m.current)
	assert.Nil(t, run(cmd))

	res := awaitResult(t, out)
	require.NoError(t, res.err)
	assert.True(t, res.reply.Chose(notify.ButtonAction))
	assert.Equal(t, "Download Now", *res.reply.Button)
}

func TestModel_MoveFocusAndDefer(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, out := src.send(t, notify.Downloaded("2.0.0"))
	m, _ = update(t, m, requestMsg{req: req})
	m, _ = update(t, m, keyMsg("left"))
	m, _ = update(t, m, keyMsg("left"))
	assert.Equal(t, notify.ButtonDefer, m.focus)
	m, _ = update(t, m, keyMsg("right"))
	m, _ = update(t, m, keyMsg("right"))
	assert.Equal(t, notify.ButtonAction, m.focus)
	m, _ = update(t, m, keyMsg("left"))

	_, cmd := update(t, m, keyMsg("enter"))
	run(cmd)

	res := awaitResult(t, out)
	assert.True(t, res.reply.Chose(notify.ButtonDefer))
	assert.Equal(t, "Later", *res.reply.Button)
}

func TestModel_DismissSendsNull(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, out := src.send(t, notify.Available("2.0.0"))
	m, _ = update(t, m, requestMsg{req: req})
	_, cmd := update(t, m, keyMsg("esc"))
	run(cmd)

	res := awaitResult(t, out)
	require.NoError(t, res.err)
	assert.Nil(t, res.reply)
}

func TestModel_InformationalModal(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, out := src.send(t, notify.Error("Unable to reach the update server."))
	assert.Nil(t, awaitResult(t, out).reply)

	m, _ = update(t, m, requestMsg{req: req})
	require.NotNil(t, m.current)
	assert.Contains(t, m.View(), "Unable to reach the update server.")

	m, cmd := update(t, m, keyMsg("enter"))
	assert.Nil(t, m.current)
	assert.Nil(t, cmd, "informational prompts send no reply")
}

func TestModel_StatusLine(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, _ := src.send(t, notify.Checking())
	m, _ = update(t, m, requestMsg{req: req})
	assert.Nil(t, m.current)
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Checking for updates...")

	req, _ = src.send(t, notify.Progress(512, 1024))
	m, _ = update(t, m, requestMsg{req: req})
	assert.Nil(t, m.current)
	assert.True(t, m.busy)
	assert.Equal(t, "Downloaded 50% (512 / 1,024 bytes)", m.status)
}

func TestModel_SpinnerFollowsBackgroundWork(t *testing.T) {
	tests := []struct {
		msg  notify.Message
		busy bool
	}{
		{notify.Checking(), true},
		{notify.Downloading("2.0.0"), true},
		{notify.Progress(10, 100), true},
		{notify.NotAvailable("1.0.0"), false},
		{notify.Downloaded("2.0.0"), false},
		{notify.Timeout(), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.msg.Type), func(t *testing.T) {
			src := newFakeSource(t)
			m := New(src)

			req, _ := src.send(t, tt.msg)
			m, _ = update(t, m, requestMsg{req: req})
			assert.Equal(t, tt.busy, m.busy)
		})
	}
}

func TestModel_PromptsQueue(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	first, _ := src.send(t, notify.NotAvailable("1.0.0"))
	second, out := src.send(t, notify.Available("2.0.0"))
	m, _ = update(t, m, requestMsg{req: first})
	m, _ = update(t, m, requestMsg{req: second})
	require.Same(t, first, m.current)
	assert.Len(t, m.queue, 1)

	m, _ = update(t, m, keyMsg("enter"))
	require.Same(t, second, m.current)
	assert.Empty(t, m.queue)

	_, cmd := update(t, m, keyMsg("enter"))
	run(cmd)
	assert.True(t, awaitResult(t, out).reply.Chose(notify.ButtonAction))
}

func TestModel_ManualCheckKey(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	_, cmd := update(t, m, keyMsg("u"))
	run(cmd)
	assert.Equal(t, int32(1), src.checks.Load())
}

func TestModel_CheckKeyIgnoredWhilePromptOpen(t *testing.T) {
	src := newFakeSource(t)
	m := New(src)

	req, _ := src.send(t, notify.Available("2.0.0"))
	m, _ = update(t, m, requestMsg{req: req})
	_, cmd := update(t, m, keyMsg("u"))
	run(cmd)
	assert.Zero(t, src.checks.Load())
}

func TestModel_QuitsWhenCoordinatorGoesAway(t *testing.T) {
	m := New(newFakeSource(t))

	m, cmd := update(t, m, closedMsg{})
	assert.True(t, m.closed)
	assert.IsType(t, tea.QuitMsg{}, run(cmd))
}
