package coordinator

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/notify"
)

type delivery struct {
	msg   notify.Message
	reply func(*notify.Reply)
}

// outbox presents notifications strictly one after another. Enqueueing
// never blocks; replies are handed back through the delivery callback.
type outbox struct {
	presenter       notify.Presenter
	decisionTimeout time.Duration

	mu     sync.Mutex
	queue  []delivery
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newOutbox(p notify.Presenter, decisionTimeout time.Duration) *outbox {
	return &outbox{
		presenter:       p,
		decisionTimeout: decisionTimeout,
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

func (o *outbox) enqueue(d delivery) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		log.Debugf("outbox closed, dropping %s", d.msg)
		return
	}
	o.queue = append(o.queue, d)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// close stops accepting messages; run returns once the queue is drained.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) next() (delivery, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return delivery{}, false, o.closed
	}
	d := o.queue[0]
	o.queue = o.queue[1:]
	return d, true, false
}

func (o *outbox) run(ctx context.Context) {
	defer close(o.done)

	for ctx.Err() == nil {
		d, ok, finished := o.next()
		if finished {
			return
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-o.wake:
			}
			continue
		}
		o.present(ctx, d)
	}
}

func (o *outbox) present(ctx context.Context, d delivery) {
	if d.reply != nil && o.decisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.decisionTimeout)
		defer cancel()
	}

	reply, err := o.presenter.Present(ctx, d.msg)
	if err != nil {
		log.Warnf("presenting %s: %v", d.msg, err)
		reply = nil
	}
	if d.reply != nil {
		d.reply(reply)
	}
}
