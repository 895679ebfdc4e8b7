// Package socket is the client side of the hub's websocket channel. One
// Client owns one connection; components register handlers per event type
// through the Bus interface.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var ErrNotConnected = errors.New("socket is not connected")

// Handler receives one decoded event. Handlers for the same type run one
// after another on the read loop, so they must not block for long.
type Handler func(events.Event)

// ListenerID identifies a registration returned by On.
type ListenerID uint64

// Bus is the subscription surface consumed by client components.
type Bus interface {
	On(t events.Type, h Handler) ListenerID
	Off(id ListenerID)
	Emit(ev events.Event) error
}

type listener struct {
	id ListenerID
	h  Handler
}

// Client is safe for concurrent use.
type Client struct {
	url     string
	session *session.Session
	dialer  *websocket.Dialer
	logger  *zap.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	listeners map[events.Type][]listener
	nextID    ListenerID

	writeMu sync.Mutex
}

var _ Bus = (*Client)(nil)

func New(url string, sess *session.Session, logger *zap.Logger) *Client {
	return &Client{
		url:       url,
		session:   sess,
		dialer:    websocket.DefaultDialer,
		logger:    logger.Named("SocketClient"),
		listeners: make(map[events.Type][]listener),
	}
}

// Connect dials the hub with the session token.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	if token := c.session.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Debug("Socket connected", zap.String("url", c.url))
	return nil
}

// Run reads frames until the connection drops or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("socket read: %w", err)
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	ev, err := events.Decode(raw)
	if err != nil {
		c.logger.Warn("Dropping invalid socket frame", zap.Error(err))
		return
	}
	c.mu.RLock()
	ls := append([]listener(nil), c.listeners[ev.EventType()]...)
	c.mu.RUnlock()
	for _, l := range ls {
		l.h(ev)
	}
}

// On registers h for events of type t.
func (c *Client) On(t events.Type, h Handler) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners[t] = append(c.listeners[t], listener{id: c.nextID, h: h})
	return c.nextID
}

// Off removes a registration. Unknown ids are ignored.
func (c *Client) Off(id ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for t, ls := range c.listeners {
		for i, l := range ls {
			if l.id == id {
				c.listeners[t] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Emit encodes ev and writes it to the connection.
func (c *Client) Emit(ev events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	raw, err := events.Encode(ev)
	if err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("socket write %s: %w", ev.EventType(), err)
	}
	return nil
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}
