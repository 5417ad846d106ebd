package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/moodysaroha/postboy/internal/notify"
)

// Path is where the websocket endpoint is mounted.
const Path = "/ws"

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Only loopback peers reach the listener.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes a Channel to one UI process over a websocket.
type Server struct {
	channel *Channel
	onCheck func()
}

// NewServer returns a Server for ch. onCheck runs when the UI asks for a
// manual update check.
func NewServer(ch *Channel, onCheck func()) *Server {
	return &Server{channel: ch, onCheck: onCheck}
}

// ServeHTTP upgrades the connection and attaches it as the channel's
// consumer. A second UI is refused with 409 Conflict.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	consumer, err := s.channel.Attach()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		consumer.Detach()
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	log.Infof("UI attached from %s", r.RemoteAddr)

	go s.writeLoop(conn, consumer)
	s.readLoop(conn, consumer)
	log.Infof("UI detached from %s", r.RemoteAddr)
}

func (s *Server) writeLoop(conn *websocket.Conn, consumer *Consumer) {
	for {
		select {
		case <-consumer.Done():
			return
		case req := <-consumer.Requests():
			data, err := notify.EncodeFrame(notify.Frame{
				Kind:         notify.FrameNotification,
				ID:           req.ID,
				ExpectsReply: req.ExpectsReply,
				Notification: &req.Message,
			})
			if err != nil {
				log.Errorf("encoding %s: %v", req.Message, err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warnf("writing to UI: %v", err)
				consumer.Detach()
				conn.Close()
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, consumer *Consumer) {
	defer func() {
		consumer.Detach()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("reading from UI: %v", err)
			}
			return
		}

		frame, err := notify.DecodeFrame(raw)
		if err != nil {
			log.Warnf("dropping frame: %v", err)
			continue
		}

		switch frame.Kind {
		case notify.FrameReply:
			if err := s.channel.Respond(frame.ID, frame.Reply); err != nil {
				log.Warnf("reply: %v", err)
			}
		case notify.FrameCheck:
			if s.onCheck != nil {
				s.onCheck()
			}
		default:
			log.Warnf("unexpected %s frame from UI", frame.Kind)
		}
	}
}

// ListenAndServe serves the websocket endpoint on addr until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the websocket endpoint on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("UI bridge listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving UI bridge: %w", err)
	}
	return nil
}
