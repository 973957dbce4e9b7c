// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/caro/internal/lobby"
	"github.com/jason-s-yu/caro/internal/middleware"
	"github.com/jason-s-yu/caro/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	outboundBuffer = 64
	pingInterval   = 30 * time.Second
	writeTimeout   = 5 * time.Second
	readLimit      = 64 << 10
)

// wsClient is the outbound half of one websocket. It satisfies lobby.Conn.
//
// Send never blocks: the session engine calls it while holding its lock. Messages are queued on out in
// order and written by writePump.
type wsClient struct {
	out     chan protocol.Message
	closing chan struct{}

	once   sync.Once
	reason string
	code   websocket.StatusCode
	logger *logrus.Entry
}

var _ lobby.Conn = (*wsClient)(nil)

func newWSClient(logger *logrus.Entry) *wsClient {
	return &wsClient{
		out:     make(chan protocol.Message, outboundBuffer),
		closing: make(chan struct{}),
		logger:  logger,
	}
}

func (c *wsClient) Send(msg protocol.Message) {
	select {
	case <-c.closing:
		return
	default:
	}
	select {
	case c.out <- msg:
	default:
		c.logger.Warnf("Outbound queue full, dropping %s and closing", msg.Kind())
		c.closeWith(SlowConsumerCode, "outbound queue full")
	}
}

// Close asks writePump to flush what is queued and end the session.
func (c *wsClient) Close(reason string) {
	c.closeWith(ReplacedSessionCode, reason)
}

func (c *wsClient) closeWith(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		c.code = code
		c.reason = reason
		close(c.closing)
	})
}

// WSHandler upgrades /ws requests and runs one session per connection.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.OriginPatterns,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "handler finished")
		conn.SetReadLimit(readLimit)

		connected := time.Now()
		middleware.LogWebSocketConnect(s.Logger, r)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := newWSClient(s.Logger.WithField("remote", r.RemoteAddr))
		sess := &session{client: client, logger: client.logger}

		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(ctx, conn, client)
			cancel()
		}()

		err = s.readPump(ctx, conn, sess)

		if sess.identity != nil {
			s.Manager.Disconnect(sess.identity)
		}
		cancel()
		<-done
		middleware.LogWebSocketDisconnect(s.Logger, r, connected, err)
	}
}

// readPump decodes frames and dispatches them in arrival order until the connection ends.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sess *session) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			sess.client.Send(protocol.NewError("text frames only"))
			continue
		}
		s.dispatch(ctx, sess, data)
	}
}

// writePump serializes queued messages onto the socket and pings the peer. When the client is closed it
// flushes what is already queued before sending the close frame.
func writePump(ctx context.Context, conn *websocket.Conn, c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg protocol.Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			c.logger.Warnf("Failed to marshal %s: %v", msg.Kind(), err)
			return nil
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, data)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.out:
			if err := write(msg); err != nil {
				c.logger.Warnf("Failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debugf("Ping failed: %v", err)
				return
			}
		case <-c.closing:
		drain:
			for {
				select {
				case msg := <-c.out:
					if err := write(msg); err != nil {
						return
					}
				default:
					break drain
				}
			}
			_ = conn.Close(c.code, c.reason)
			return
		}
	}
}
