package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/notify"
)

var (
	// ErrUnavailable is returned when no UI context is attached.
	ErrUnavailable = errors.New("no UI attached")
	// ErrConsumerAttached is returned when a second UI tries to attach.
	ErrConsumerAttached = errors.New("a UI is already attached")
	// ErrUnknownRequest is returned for a reply that matches no pending request.
	ErrUnknownRequest = errors.New("unknown request")
)

// Request is one notification delivered to a UI context.
type Request struct {
	ID           string
	Message      notify.Message
	ExpectsReply bool

	respond func(*notify.Reply) error
	once    sync.Once
}

// Respond answers the request. Only the first call has an effect and
// requests that expect no reply ignore it.
func (r *Request) Respond(reply *notify.Reply) error {
	if !r.ExpectsReply || r.respond == nil {
		return nil
	}
	var err error
	r.once.Do(func() { err = r.respond(reply) })
	return err
}

// Channel is an asynchronous request/response pipe with a single consumer.
// Decision messages are correlated to their replies by request ID.
type Channel struct {
	mu       sync.Mutex
	consumer *Consumer
	pending  map[string]chan *notify.Reply
}

// NewChannel returns a Channel with no consumer.
func NewChannel() *Channel {
	return &Channel{pending: make(map[string]chan *notify.Reply)}
}

// Consumer is the attached UI's end of a Channel.
type Consumer struct {
	ch       *Channel
	requests chan *Request
	done     chan struct{}
	once     sync.Once
}

// Requests delivers notifications in order.
func (c *Consumer) Requests() <-chan *Request {
	return c.requests
}

// Done is closed when the consumer detaches.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Detach releases the channel so another consumer can attach. Pending
// presentations fail with ErrUnavailable.
func (c *Consumer) Detach() {
	c.once.Do(func() {
		c.ch.mu.Lock()
		if c.ch.consumer == c {
			c.ch.consumer = nil
		}
		c.ch.mu.Unlock()
		close(c.done)
	})
}

// Attach registers the single consumer.
func (ch *Channel) Attach() (*Consumer, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.consumer != nil {
		return nil, ErrConsumerAttached
	}
	ch.consumer = &Consumer{
		ch:       ch,
		requests: make(chan *Request),
		done:     make(chan struct{}),
	}
	return ch.consumer, nil
}

// Available reports whether a consumer is attached.
func (ch *Channel) Available() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.consumer != nil
}

// Present hands msg to the consumer. For decision messages it waits for the
// correlated reply, ctx expiry or the consumer going away.
func (ch *Channel) Present(ctx context.Context, msg notify.Message) (*notify.Reply, error) {
	ch.mu.Lock()
	consumer := ch.consumer
	if consumer == nil {
		ch.mu.Unlock()
		return nil, ErrUnavailable
	}

	req := &Request{
		ID:           uuid.NewString(),
		Message:      msg,
		ExpectsReply: msg.Type.NeedsDecision(),
	}
	var replies chan *notify.Reply
	if req.ExpectsReply {
		replies = make(chan *notify.Reply, 1)
		ch.pending[req.ID] = replies
		id := req.ID
		req.respond = func(r *notify.Reply) error { return ch.Respond(id, r) }
	}
	ch.mu.Unlock()
	defer ch.forget(req.ID)

	select {
	case consumer.requests <- req:
	case <-consumer.done:
		return nil, ErrUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if !req.ExpectsReply {
		return nil, nil
	}

	log.WithField("request", req.ID).Debugf("waiting for reply to %s", msg)
	select {
	case reply := <-replies:
		return reply, nil
	case <-consumer.done:
		return nil, ErrUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Respond routes reply to the pending request id.
func (ch *Channel) Respond(id string, reply *notify.Reply) error {
	ch.mu.Lock()
	replies, ok := ch.pending[id]
	delete(ch.pending, id)
	ch.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	replies <- reply
	return nil
}

func (ch *Channel) forget(id string) {
	ch.mu.Lock()
	delete(ch.pending, id)
	ch.mu.Unlock()
}
