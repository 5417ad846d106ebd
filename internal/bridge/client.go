package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/notify"
)

// Client is the UI process's end of a Server.
type Client struct {
	conn     *websocket.Conn
	requests chan *Request

	writeMu sync.Mutex

	mu  sync.Mutex
	err error
}

// Dial connects to the Server listening on addr (host:port).
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, ErrConsumerAttached
		}
		return nil, fmt.Errorf("connecting to %s: %w", u.String(), err)
	}

	c := &Client{
		conn:     conn,
		requests: make(chan *Request, 16),
	}
	go c.readLoop()
	return c, nil
}

// Requests delivers notifications. It is closed when the connection ends;
// Err then reports why.
func (c *Client) Requests() <-chan *Request {
	return c.requests
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// RequestCheck asks the coordinator for a manual update check.
func (c *Client) RequestCheck() error {
	return c.send(notify.Frame{Kind: notify.FrameCheck})
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) send(f notify.Frame) error {
	data, err := notify.EncodeFrame(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending %s frame: %w", f.Kind, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.requests)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}

		frame, err := notify.DecodeFrame(raw)
		if err != nil {
			log.Warnf("dropping frame: %v", err)
			continue
		}
		if frame.Kind != notify.FrameNotification || frame.Notification == nil {
			log.Warnf("unexpected %s frame from coordinator", frame.Kind)
			continue
		}

		req := &Request{
			ID:           frame.ID,
			Message:      *frame.Notification,
			ExpectsReply: frame.ExpectsReply,
		}
		if req.ExpectsReply {
			id := req.ID
			req.respond = func(r *notify.Reply) error {
				return c.send(notify.Frame{Kind: notify.FrameReply, ID: id, Reply: r})
			}
		}
		c.requests <- req
	}
}
