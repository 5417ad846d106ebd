package coordinator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/config"
	"github.com/moodysaroha/postboy/internal/notify"
	"github.com/moodysaroha/postboy/internal/updater"
)

const (
	defaultManualTimeout = 30 * time.Second
	progressInterval     = 500 * time.Millisecond
)

// Feed checks the release feed and fetches release archives.
type Feed interface {
	Check(ctx context.Context) (*updater.CheckResult, error)
	Download(ctx context.Context, release *updater.Release, destDir string, progress updater.ProgressFunc) (*updater.Artifact, error)
	HasCredential() bool
}

// Installer applies or parks a downloaded artifact.
type Installer interface {
	StagingDir() string
	InstallAndRestart(artifact *updater.Artifact) error
	Defer(artifact *updater.Artifact) error
}

// Coordinator owns the update check session and relays every state change
// to a Presenter.
type Coordinator struct {
	feed      Feed
	installer Installer
	outbox    *outbox

	manualTimeout time.Duration
	cacheDir      string

	events chan event
	quit   chan struct{}

	// Owned by the runner goroutine.
	m           machine
	timer       *time.Timer
	checkID     uint64
	cancelCheck context.CancelFunc
	once        bool

	ctx context.Context
	wg  sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCacheDir writes the version cache to dir after every successful check.
func WithCacheDir(dir string) Option {
	return func(c *Coordinator) {
		c.cacheDir = dir
	}
}

// New creates a Coordinator. Updates are disabled unless settings.Packaged
// is set.
func New(feed Feed, installer Installer, presenter notify.Presenter, settings config.Update, opts ...Option) *Coordinator {
	c := &Coordinator{
		feed:          feed,
		installer:     installer,
		outbox:        newOutbox(presenter, settings.DecisionTimeout),
		manualTimeout: settings.ManualTimeout,
		events:        make(chan event, 16),
		quit:          make(chan struct{}),
		m: machine{
			dev:           !settings.Packaged,
			hasCredential: feed.HasCredential(),
		},
	}
	if c.manualTimeout <= 0 {
		c.manualTimeout = defaultManualTimeout
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckNow requests a manual check.
func (c *Coordinator) CheckNow() {
	c.Trigger(true)
}

// Trigger requests a check. Automatic triggers never produce visible
// output unless an update is found.
func (c *Coordinator) Trigger(manual bool) {
	c.post(evTrigger{manual: manual, at: time.Now()})
}

func (c *Coordinator) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// Run processes events until ctx is cancelled. A Coordinator runs once.
func (c *Coordinator) Run(ctx context.Context) error {
	return c.run(ctx)
}

// CheckOnce performs one manual check and returns when the session and any
// download/restart handshake that follows it have settled and every
// notification has been presented.
func (c *Coordinator) CheckOnce(ctx context.Context) error {
	c.once = true
	c.post(evTrigger{manual: true, at: time.Now()})
	return c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	go c.outbox.run(ctx)

	defer func() {
		close(c.quit)
		c.stopTimer()
		cancel()
		<-c.outbox.done
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.dispatch(ev)
			if c.once && c.m.settled() {
				c.outbox.close()
				select {
				case <-c.outbox.done:
				case <-ctx.Done():
				}
				return nil
			}
		}
	}
}

// dispatch folds ev and every event its effects produce synchronously.
func (c *Coordinator) dispatch(ev event) {
	pending := []event{ev}
	for len(pending) > 0 {
		ev, pending = pending[0], pending[1:]

		var effects []effect
		c.m, effects = step(c.m, ev)
		for _, e := range effects {
			if next := c.apply(e); next != nil {
				pending = append(pending, next)
			}
		}
	}
}

func (c *Coordinator) apply(e effect) event {
	logger := log.WithField("session", c.m.session.ID)

	switch e.kind {
	case effLog:
		logger.Debug(e.text)

	case effNotify:
		logger.Debugf("notify %s", e.msg)
		c.outbox.enqueue(delivery{msg: e.msg})

	case effPrompt:
		logger.Debugf("prompt %s", e.msg)
		kind := e.decision
		c.outbox.enqueue(delivery{msg: e.msg, reply: func(r *notify.Reply) {
			c.post(evDecision{kind: kind, reply: r})
		}})

	case effArmTimeout:
		c.stopTimer()
		id := e.session
		c.timer = time.AfterFunc(c.manualTimeout, func() {
			c.post(evTimeout{session: id})
		})

	case effCancelTimeout:
		c.stopTimer()

	case effCheck:
		c.startCheck(e.session)

	case effCancelCheck:
		if c.checkID == e.session && c.cancelCheck != nil {
			c.cancelCheck()
			c.cancelCheck = nil
		}

	case effDownload:
		c.startDownload(e.release)

	case effInstall:
		logger.Infof("installing %s", e.artifact.Version)
		err := c.installer.InstallAndRestart(e.artifact)
		if err != nil {
			logger.Errorf("install failed: %v", err)
		}
		return evInstalled{artifact: e.artifact, err: err}

	case effDefer:
		err := c.installer.Defer(e.artifact)
		if err != nil {
			logger.Errorf("staging update: %v", err)
		}
		return evInstalled{artifact: e.artifact, deferred: true, err: err}

	case effSaveCache:
		if c.cacheDir == "" {
			return nil
		}
		if err := updater.SaveCache(c.cacheDir, updater.CacheFromResult(e.result, e.at)); err != nil {
			logger.Warnf("saving version cache: %v", err)
		}
	}
	return nil
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) startCheck(session uint64) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.checkID, c.cancelCheck = session, cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		res, err := c.feed.Check(ctx)
		c.post(evFeedResult{session: session, result: res, err: err, at: time.Now()})
	}()
}

func (c *Coordinator) startDownload(release *updater.Release) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		artifact, err := c.feed.Download(c.ctx, release, c.installer.StagingDir(), c.progress())
		c.post(evDownloaded{artifact: artifact, err: err})
	}()
}

// progress returns a ProgressFunc that forwards at most one progress
// notification per progressInterval, plus the final one.
func (c *Coordinator) progress() updater.ProgressFunc {
	var last time.Time
	return func(transferred, total int64) {
		now := time.Now()
		if transferred != total && now.Sub(last) < progressInterval {
			return
		}
		last = now
		c.outbox.enqueue(delivery{msg: notify.Progress(transferred, total)})
	}
}
