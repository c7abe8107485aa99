package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/events"
)

const (
	wsReadLimit         = 512 * 1024
	wsHeartbeatInterval = 60 * time.Second
)

// SafeConn wraps a websocket connection with a write mutex and panic
// recovery. The event loop and the heartbeat replies write from different
// goroutines, and gorilla/websocket panics on concurrent writes.
type SafeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteJSON writes a JSON message. Writes after Close are silently dropped.
func (sc *SafeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if sc.closed {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			sc.closed = true
		}
	}()
	return sc.conn.WriteJSON(v)
}

func (sc *SafeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

// sessionSocket streams a session's events to a websocket client. On connect
// the client gets a snapshot of the session so far, then live events from the
// bus filtered to this session.
func (s *Server) sessionSocket(c *gin.Context) {
	sessionID := c.Param("id")
	sess, err := s.engine.Session(sessionID)
	if err != nil {
		if errors.Is(err, consensus.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Logf("websocket upgrade failed: %v", err)
		return
	}
	safe := NewSafeConn(conn)
	defer safe.Close()

	// Unique per connection so multiple clients can watch the same session.
	subscriberID := fmt.Sprintf("ws_%s_%d", sessionID, time.Now().UnixNano())
	eventCh := s.bus.Subscribe(subscriberID)
	defer s.bus.Unsubscribe(subscriberID)

	safe.WriteJSON(map[string]interface{}{
		"type": "session_snapshot",
		"data": sess,
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(wsReadLimit)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn.SetReadDeadline(time.Now().Add(wsHeartbeatInterval))

				var msg map[string]interface{}
				if err := conn.ReadJSON(&msg); err != nil {
					if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
						// No traffic for a while, check the client is alive.
						if err := safe.WriteJSON(pingMessage()); err != nil {
							return
						}
						continue
					}
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
						!websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						s.logger.Logf("websocket %s read error: %v", subscriberID, err)
					}
					return
				}
				if kind, _ := msg["type"].(string); kind == "ping" {
					safe.WriteJSON(map[string]interface{}{
						"type": "pong",
						"data": map[string]interface{}{"timestamp": time.Now().Unix()},
					})
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if !eventForSession(event, sessionID) {
				continue
			}
			if err := safe.WriteJSON(event); err != nil {
				s.logger.Logf("websocket %s write error: %v", subscriberID, err)
				return
			}
		}
	}
}

func pingMessage() map[string]interface{} {
	return map[string]interface{}{
		"type": "ping",
		"data": map[string]interface{}{"timestamp": time.Now().Unix()},
	}
}

// eventForSession reports whether an event belongs to the given session.
// Events that carry no session id at all (global errors) go to everyone.
func eventForSession(event events.UIEvent, sessionID string) bool {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return true
	}
	id, ok := data["session_id"].(string)
	if !ok {
		return true
	}
	return id == sessionID
}
