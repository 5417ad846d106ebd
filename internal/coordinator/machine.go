package coordinator

import (
	"time"

	"github.com/moodysaroha/postboy/internal/notify"
	"github.com/moodysaroha/postboy/internal/updater"
)

// Session is one update check. Manual sessions gate user-visible outcomes
// and are bounded by the manual timeout.
type Session struct {
	ID      uint64
	Manual  bool
	Started time.Time
	Closed  bool
}

// Active reports whether the session is still waiting for an outcome.
func (s Session) Active() bool {
	return s.ID != 0 && !s.Closed
}

// flow tracks the download/restart handshake that follows an available
// update. It is independent of the check session.
type flow int

const (
	flowIdle flow = iota
	flowAwaitDownload
	flowDownloading
	flowAwaitRestart
)

func (f flow) String() string {
	switch f {
	case flowAwaitDownload:
		return "await-download"
	case flowDownloading:
		return "downloading"
	case flowAwaitRestart:
		return "await-restart"
	default:
		return "idle"
	}
}

// decisionKind names which prompt a reply answers.
type decisionKind int

const (
	decideDownload decisionKind = iota + 1
	decideRestart
)

type machine struct {
	dev           bool
	hasCredential bool

	lastID  uint64
	session Session
	// check is the session ID the outstanding feed request was started
	// for, or 0 when none is running.
	check uint64

	flow     flow
	release  *updater.Release
	artifact *updater.Artifact
	// staged is the artifact parked for the next launch.
	staged *updater.Artifact
}

// settled reports whether nothing is pending that a one-shot run should
// wait for.
func (m machine) settled() bool {
	return !m.session.Active() && m.flow == flowIdle
}

type event interface{ isEvent() }

type evTrigger struct {
	manual bool
	at     time.Time
}

type evFeedResult struct {
	session uint64
	result  *updater.CheckResult
	err     error
	at      time.Time
}

type evTimeout struct {
	session uint64
}

type evDecision struct {
	kind  decisionKind
	reply *notify.Reply
}

type evDownloaded struct {
	artifact *updater.Artifact
	err      error
}

type evInstalled struct {
	artifact *updater.Artifact
	deferred bool
	err      error
}

func (evTrigger) isEvent()    {}
func (evFeedResult) isEvent() {}
func (evTimeout) isEvent()    {}
func (evDecision) isEvent()   {}
func (evDownloaded) isEvent() {}
func (evInstalled) isEvent()  {}

type effectKind int

const (
	effNotify effectKind = iota + 1
	effPrompt
	effArmTimeout
	effCancelTimeout
	effCheck
	effCancelCheck
	effDownload
	effInstall
	effDefer
	effSaveCache
	effLog
)

type effect struct {
	kind     effectKind
	msg      notify.Message
	decision decisionKind
	session  uint64
	release  *updater.Release
	artifact *updater.Artifact
	result   *updater.CheckResult
	at       time.Time
	text     string
}

func notifyEffect(msg notify.Message) effect { return effect{kind: effNotify, msg: msg} }

func logEffect(text string) effect { return effect{kind: effLog, text: text} }

// step folds ev into m. It performs no I/O; everything with a side effect
// is returned as an effect for the runner.
func step(m machine, ev event) (machine, []effect) {
	switch ev := ev.(type) {
	case evTrigger:
		return onTrigger(m, ev)
	case evFeedResult:
		return onFeedResult(m, ev)
	case evTimeout:
		return onTimeout(m, ev)
	case evDecision:
		return onDecision(m, ev)
	case evDownloaded:
		return onDownloaded(m, ev)
	case evInstalled:
		return onInstalled(m, ev)
	}
	return m, nil
}

func onTrigger(m machine, ev evTrigger) (machine, []effect) {
	if m.dev {
		if !ev.manual {
			return m, []effect{logEffect("development mode, skipping automatic check")}
		}
		return m, []effect{notifyEffect(notify.DevMode())}
	}

	if !ev.manual {
		switch {
		case m.check != 0:
			return m, []effect{logEffect("check already in flight, dropping automatic trigger")}
		case m.flow != flowIdle:
			return m, []effect{logEffect("update flow in progress (" + m.flow.String() + "), skipping automatic check")}
		}
		m.lastID++
		m.session = Session{ID: m.lastID, Started: ev.at}
		m.check = m.session.ID
		return m, []effect{{kind: effCheck, session: m.session.ID}}
	}

	switch m.flow {
	case flowAwaitDownload, flowAwaitRestart:
		// The decision prompt for this release is already on screen.
		return m, []effect{logEffect("decision prompt open, ignoring manual trigger")}
	case flowDownloading:
		return m, []effect{notifyEffect(notify.Downloading(updater.DisplayVersion(m.release.Version)))}
	}

	var effects []effect
	attach := m.check != 0 && m.session.Active()
	if m.check != 0 && !attach {
		// Its session gave up on it; a retry gets a fresh request.
		effects = append(effects,
			effect{kind: effCancelCheck, session: m.check},
			logEffect("abandoning check left over from a timed out session"),
		)
		m.check = 0
	}
	if m.session.Active() && m.session.Manual {
		effects = append(effects, effect{kind: effCancelTimeout, session: m.session.ID})
	}
	m.lastID++
	m.session = Session{ID: m.lastID, Manual: true, Started: ev.at}
	effects = append(effects,
		notifyEffect(notify.Checking()),
		effect{kind: effArmTimeout, session: m.session.ID},
	)
	if attach {
		// The running check answers for the new session.
		effects = append(effects, logEffect("check already in flight, attaching manual session"))
		return m, effects
	}
	m.check = m.session.ID
	return m, append(effects, effect{kind: effCheck, session: m.session.ID})
}

// closeSession ends the current session and clears its manual flag,
// cancelling the timeout when one was armed.
func closeSession(m machine) (machine, []effect) {
	var effects []effect
	if m.session.Manual {
		effects = append(effects, effect{kind: effCancelTimeout, session: m.session.ID})
	}
	m.session.Closed = true
	m.session.Manual = false
	return m, effects
}

func onFeedResult(m machine, ev evFeedResult) (machine, []effect) {
	var effects []effect
	if ev.err == nil && ev.result != nil {
		effects = append(effects, effect{kind: effSaveCache, result: ev.result, at: ev.at})
	}

	if ev.session != m.check {
		return m, append(effects, logEffect("dropping result of an abandoned check"))
	}
	m.check = 0

	if !m.session.Active() {
		return m, append(effects, logEffect("session already settled, dropping late check result"))
	}

	manual := m.session.Manual
	m, closing := closeSession(m)
	effects = append(effects, closing...)

	switch {
	case ev.err != nil:
		if !manual {
			return m, append(effects, logEffect("automatic check failed: "+ev.err.Error()))
		}
		failure := updater.Classify(ev.err, m.hasCredential)
		return m, append(effects, notifyEffect(notify.Error(failure.Message)))

	case ev.result == nil:
		return m, effects

	case ev.result.Available:
		if m.flow != flowIdle {
			return m, append(effects, logEffect("update flow in progress, not prompting again"))
		}
		version := updater.DisplayVersion(ev.result.Release.Version)
		if m.staged != nil && m.staged.Version == version {
			if !manual {
				return m, append(effects, logEffect(version+" is already staged for next launch, not prompting again"))
			}
			m.flow = flowAwaitRestart
			m.artifact = m.staged
			return m, append(effects, effect{
				kind:     effPrompt,
				msg:      notify.Downloaded(version),
				decision: decideRestart,
			})
		}
		m.flow = flowAwaitDownload
		m.release = ev.result.Release
		return m, append(effects, effect{
			kind:     effPrompt,
			msg:      notify.Available(version),
			decision: decideDownload,
		})

	default:
		if !manual {
			return m, append(effects, logEffect("no update available"))
		}
		return m, append(effects, notifyEffect(notify.NotAvailable(ev.result.Current)))
	}
}

func onTimeout(m machine, ev evTimeout) (machine, []effect) {
	if !m.session.Active() || m.session.ID != ev.session || !m.session.Manual {
		return m, []effect{logEffect("stale timeout ignored")}
	}
	m.session.Closed = true
	m.session.Manual = false
	return m, []effect{notifyEffect(notify.Timeout())}
}

func onDecision(m machine, ev evDecision) (machine, []effect) {
	switch {
	case ev.kind == decideDownload && m.flow == flowAwaitDownload:
		if !ev.reply.Chose(notify.ButtonAction) {
			m.flow = flowIdle
			m.release = nil
			return m, []effect{logEffect("download deferred")}
		}
		m.flow = flowDownloading
		return m, []effect{
			notifyEffect(notify.Downloading(updater.DisplayVersion(m.release.Version))),
			{kind: effDownload, release: m.release},
		}

	case ev.kind == decideRestart && m.flow == flowAwaitRestart:
		artifact := m.artifact
		m.flow = flowIdle
		m.release = nil
		m.artifact = nil
		if ev.reply.Chose(notify.ButtonAction) {
			return m, []effect{{kind: effInstall, artifact: artifact}}
		}
		return m, []effect{{kind: effDefer, artifact: artifact}}
	}
	return m, []effect{logEffect("decision does not match the current flow, ignoring")}
}

func onDownloaded(m machine, ev evDownloaded) (machine, []effect) {
	if m.flow != flowDownloading {
		return m, []effect{logEffect("unexpected download completion, ignoring")}
	}
	if ev.err != nil {
		m.flow = flowIdle
		m.release = nil
		// The user asked for this download, so the failure is always shown.
		return m, []effect{notifyEffect(notify.Error(updater.Classify(ev.err, m.hasCredential).Message))}
	}
	m.flow = flowAwaitRestart
	m.artifact = ev.artifact
	return m, []effect{{
		kind:     effPrompt,
		msg:      notify.Downloaded(ev.artifact.Version),
		decision: decideRestart,
	}}
}

func onInstalled(m machine, ev evInstalled) (machine, []effect) {
	switch {
	case ev.err == nil && ev.deferred:
		m.staged = ev.artifact
		return m, []effect{logEffect("staged " + ev.artifact.Version + " for next launch")}
	case ev.err == nil:
		m.staged = nil
		return m, []effect{logEffect("installed " + ev.artifact.Version)}
	}
	return m, []effect{notifyEffect(notify.Error(ev.err.Error()))}
}
