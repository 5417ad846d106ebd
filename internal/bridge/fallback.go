package bridge

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/notify"
)

// Endpoint is a Presenter whose reachability can be probed.
type Endpoint interface {
	notify.Presenter
	Available() bool
}

// Fallback presents through Primary while it is reachable and through
// Secondary otherwise, so no message is silently dropped.
type Fallback struct {
	Primary   Endpoint
	Secondary notify.Presenter
}

// Present implements notify.Presenter.
func (f *Fallback) Present(ctx context.Context, msg notify.Message) (*notify.Reply, error) {
	if f.Primary != nil && f.Primary.Available() {
		reply, err := f.Primary.Present(ctx, msg)
		if !errors.Is(err, ErrUnavailable) {
			return reply, err
		}
		log.Debugf("UI went away while presenting %s, falling back", msg)
	}
	return f.Secondary.Present(ctx, msg)
}
